package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	Database struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:"" validate:"required"`
	} `yaml:"database"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9200"`
	} `yaml:"listen"`
	Frontend struct {
		URL string `yaml:"url" env-default:"http://localhost:3000"`
	} `yaml:"frontend"`
	Whatsapp struct {
		AccessToken string `yaml:"access_token" env:"WA_ACCESS_TOKEN" env-default:""`
		VerifyToken string `yaml:"verify_token" env:"WA_VERIFY_TOKEN" env-default:""`
		AppSecret   string `yaml:"app_secret" env:"WA_APP_SECRET" env-default:""`
	} `yaml:"whatsapp"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
	} `yaml:"telegram"`
	OpenAI struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"OPENAI_API_KEY" env-default:""`
		Model   string `yaml:"model" env-default:"gpt-4o-mini"`
		Prompt  string `yaml:"prompt" env-default:""`
		Queue   string `yaml:"queue" env-default:"Assistente"`
	} `yaml:"openai"`
	Chatbot struct {
		DebounceMs int `yaml:"debounce_ms" env-default:"1500" validate:"gte=0"`
		GroupTTLs  int `yaml:"group_cache_ttl_s" env-default:"600" validate:"gt=0"`
	} `yaml:"chatbot"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = validator.New().Struct(instance); err != nil {
			instance = nil
			log.Fatal(fmt.Errorf("invalid config: %w", err))
		}
	})
	return instance
}

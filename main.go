package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"zapdesk/bot"
	"zapdesk/bot/whatsapp"
	"zapdesk/impl/core"
	"zapdesk/internal/config"
	"zapdesk/internal/database"
	"zapdesk/internal/http-server/api"
	"zapdesk/internal/lib/logger"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/chatbot"
	"zapdesk/internal/service/contacts"
	"zapdesk/internal/service/fanout"
	"zapdesk/internal/service/flows"
	"zapdesk/internal/service/inbound"
	"zapdesk/internal/service/outbound"
	"zapdesk/internal/service/reaper"
	"zapdesk/internal/service/router"
	"zapdesk/internal/service/tickets"
	"zapdesk/internal/tracker"
	"zapdesk/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	mediaDir := flag.String("media", "public/media", "path to downloaded media files")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.Setup(conf.Env, *logPath)

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupAlertHandler(lg, tgBot, slog.LevelError)
			lg.Info("telegram alerts initialized")
		}
	}

	lg.Info("starting zapdesk", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	track := tracker.New(lg, tgBot)

	store, err := database.Open(conf.Database.DSN, conf.Env)
	if err != nil {
		lg.Error("database open", sl.Err(err))
		return
	}
	defer store.Close()
	lg.Info("database initialized")

	hub := ws.NewHub(lg)
	go hub.Run()
	events := fanout.New(hub)

	manager := whatsapp.NewManager()
	registerSessions(manager, store, conf, lg)

	sender := outbound.New(store, events, lg)
	contactResolver := contacts.New(
		store,
		conf.Frontend.URL+"/nopicture.png",
		time.Duration(conf.Chatbot.GroupTTLs)*time.Second,
		lg,
	)
	ticketResolver := tickets.NewResolver(store, events, lg)
	updater := tickets.NewUpdater(store, manager, sender, events, lg)
	queueRouter := router.New(store, sender, events,
		time.Duration(conf.Chatbot.DebounceMs)*time.Millisecond, lg)
	machine := chatbot.New(store, sender, events, lg)

	registry := flows.NewRegistry()
	if conf.OpenAI.Enabled {
		assist := flows.NewAssist(conf.OpenAI.ApiKey, conf.OpenAI.Queue, conf.OpenAI.Model, conf.OpenAI.Prompt, lg)
		registry.Register(assist)
		lg.With(
			sl.Secret("openai_key", conf.OpenAI.ApiKey),
			slog.String("queue", conf.OpenAI.Queue),
		).Info("assist flow initialized")
	}

	pipeline := inbound.New(inbound.Deps{
		Store:    store,
		Tracker:  track,
		Manager:  manager,
		Contacts: contactResolver,
		Tickets:  ticketResolver,
		Updater:  updater,
		Router:   queueRouter,
		Chatbot:  machine,
		Flows:    registry,
		Sender:   sender,
		Events:   events,
		MediaDir: *mediaDir,
	}, lg)

	sweeper := reaper.New(store, updater, events, lg)
	if err := sweeper.Start(); err != nil {
		lg.Error("reaper start", sl.Err(err))
		return
	}
	defer sweeper.Stop()

	handler := core.New(pipeline, updater, store)

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}

// registerSessions builds a Graph API session for every configured
// connection.
func registerSessions(manager *whatsapp.Manager, store *database.Store, conf *config.Config, lg *slog.Logger) {
	wpps, err := store.Whatsapps(context.Background())
	if err != nil {
		lg.Error("failed to list connections", sl.Err(err))
		return
	}
	for _, wpp := range wpps {
		if wpp.PhoneNumberID == "" {
			lg.Warn("connection without phone number id, skipping",
				slog.Uint64("whatsapp_id", uint64(wpp.ID)))
			continue
		}
		manager.Register(whatsapp.NewClient(
			conf.Whatsapp.AccessToken,
			wpp.PhoneNumberID,
			wpp.ID,
			wpp.CompanyID,
			lg,
		))
		lg.With(
			slog.Uint64("whatsapp_id", uint64(wpp.ID)),
			slog.Uint64("company_id", uint64(wpp.CompanyID)),
		).Info("session registered")
	}
}

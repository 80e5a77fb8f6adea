package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"zapdesk/entity"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps the relational database. All persistence goes through it.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and runs migrations.
func Open(dsn string, env string) (*Store, error) {
	logLevel := gormlogger.Warn
	if env == "local" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := New(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// New wraps an already opened connection. Tests use this with an
// in-memory sqlite database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for every aggregate.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&entity.Contact{},
		&entity.Ticket{},
		&entity.TicketTracking{},
		&entity.Message{},
		&entity.Queue{},
		&entity.QueueOption{},
		&entity.QueueSchedule{},
		&entity.Whatsapp{},
		&entity.Setting{},
		&entity.UserRating{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/clockin/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrSessionClosed = errors.New("session is already closed")
	ErrInvalidPin    = errors.New("PIN must be 4 to 8 digits")
)

// Options configures Open
type Options struct {
	Path        string
	BusyTimeout time.Duration
	TxRetries   int
	PinCost     int
	Debug       bool // log SQL statements
	Logger      *slog.Logger
}

// DB wraps the gorm handle together with the per-scope locks that guard
// session transitions
type DB struct {
	gorm    *gorm.DB
	locks   *scopeLocks
	retries int
	pinCost int
	logger  *slog.Logger
}

// Open sets up the database connection and runs migrations
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PinCost == 0 {
		opts.PinCost = 10
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logMode := logger.Silent // Quiet by default
	if opts.Debug {
		logMode = logger.Info
	}

	gdb, err := gorm.Open(sqlite.Open(dsn(opts)), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one pooled connection keeps transactions
	// from tripping over each other inside this process.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{
		gorm:    gdb,
		locks:   newScopeLocks(),
		retries: opts.TxRetries,
		pinCost: opts.PinCost,
		logger:  opts.Logger,
	}

	if err := d.runMigrations(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

func dsn(opts Options) string {
	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		opts.Path, timeout.Milliseconds())
}

// runMigrations creates/updates the database schema
func (d *DB) runMigrations() error {
	return d.gorm.AutoMigrate(
		&models.Category{},
		&models.JobCode{},
		&models.Employee{},
		&models.ActivityTag{},
		&models.Session{},
		&models.SessionTag{},
	)
}

// Close closes the database connection
func (d *DB) Close() error {
	if d == nil || d.gorm == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound maps gorm's miss to ErrNotFound with some context
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s #%d", ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to load %s #%d: %w", what, id, err)
}

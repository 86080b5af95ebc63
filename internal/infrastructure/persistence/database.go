package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the GORM handle and its connection pool
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// Option adjusts the GORM configuration before the connection opens
type Option func(*gorm.Config)

// WithLogger routes GORM logging, normally to the zap-backed logger
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// WithoutPreparedStatements disables the statement cache, which poolers in
// transaction mode cannot handle
func WithoutPreparedStatements() Option {
	return func(c *gorm.Config) { c.PrepareStmt = false }
}

// Open connects to PostgreSQL and verifies the connection before returning
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return open(ctx, postgres.Open(cfg.DSN()), cfg, opts...)
}

func open(ctx context.Context, dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

// configurePool leaves database/sql defaults in place for zero values
func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}
}

// PingContext backs the readiness probe
func (d *Database) PingContext(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Stats reports the pool counters
func (d *Database) Stats() sql.DBStats {
	return d.sql.Stats()
}

func (d *Database) Close() error {
	return d.sql.Close()
}

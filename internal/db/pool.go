// Package db is the storage layer. Queries are raw SQL executed
// through gorm's connection handling; gorm's model layer is only used
// for schema migration.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobradar.fyi/jobradar/internal/config"
)

// ErrNoRows is returned by single-row scans that matched nothing.
var ErrNoRows = sql.ErrNoRows

// CommandTag reports the outcome of a statement that returns no rows.
type CommandTag struct {
	rowsAffected int64
}

func (c CommandTag) RowsAffected() int64 {
	return c.rowsAffected
}

// Row wraps a single-row result. Scanning a nil row yields ErrNoRows
// instead of a panic.
type Row struct {
	row *sql.Row
}

func (r *Row) Scan(dest ...any) error {
	if r == nil || r.row == nil {
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

// Rows wraps a multi-row result.
type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool {
	if r == nil || r.rows == nil {
		return false
	}
	return r.rows.Next()
}

func (r *Rows) Scan(dest ...any) error {
	if r == nil || r.rows == nil {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func (r *Rows) Err() error {
	if r == nil || r.rows == nil {
		return nil
	}
	return r.rows.Err()
}

func (r *Rows) Close() {
	if r == nil || r.rows == nil {
		return
	}
	_ = r.rows.Close()
}

// Pool is the shared database handle. It owns the connection pool and
// runs schema migration on startup.
type Pool struct {
	orm *gorm.DB
	std *sql.DB
}

// NewPool opens the database, tunes the connection pool, verifies
// connectivity, and migrates the schema.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	orm, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	std, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	tuneConnPool(std, cfg)

	if err := std.PingContext(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{orm: orm, std: std}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}
	return pool, nil
}

func tuneConnPool(std *sql.DB, cfg *config.Config) {
	maxOpen := int(cfg.DBMaxConns)
	if maxOpen <= 0 {
		maxOpen = 8
	}
	minIdle := int(cfg.DBMinConns)
	if minIdle < 1 {
		minIdle = 1
	}
	if minIdle > maxOpen {
		minIdle = maxOpen
	}

	std.SetMaxOpenConns(maxOpen)
	std.SetMaxIdleConns(minIdle)
	std.SetConnMaxIdleTime(5 * time.Minute)
	std.SetConnMaxLifetime(30 * time.Minute)
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if p == nil || p.orm == nil {
		return &Row{row: nil}
	}
	return &Row{row: p.orm.WithContext(ctx).Raw(query, args...).Row()}
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if p == nil || p.orm == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	rows, err := p.orm.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (CommandTag, error) {
	if p == nil || p.orm == nil {
		return CommandTag{}, fmt.Errorf("database pool is not initialized")
	}
	res := p.orm.WithContext(ctx).Exec(query, args...)
	return CommandTag{rowsAffected: res.RowsAffected}, res.Error
}

func (p *Pool) Close() error {
	if p == nil || p.std == nil {
		return nil
	}
	return p.std.Close()
}

// gormLogLevel maps the application log level onto gorm's coarser
// scale. Unknown levels stay quiet outside local development.
func gormLogLevel(appLogLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		if strings.EqualFold(strings.TrimSpace(environment), "local") {
			return logger.Warn
		}
		return logger.Error
	}
}

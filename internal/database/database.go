// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB and Aurora MySQL.
//
// Public entry points:
//
//	DSN(template, password)               – splice a resolved password into a DSN.
//	Open(dsn)                             – quick helper with conservative pool sizes.
//	OpenWithOptions(dsn, maxOpen, maxIdle) – fine-grained control.
//	Ping(ctx, db)                         – bounded liveness check for readiness.
//
// Open helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// PingTimeout bounds a readiness ping.
const PingTimeout = 2 * time.Second

// ErrNoDSN is returned by DSN when no template is configured.
var ErrNoDSN = errors.New("database: no DSN configured")

// Pinger is the slice of *sqlx.DB the readiness probe needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DSN fills the single %s placeholder in template with password.  A
// template without a placeholder is returned unchanged so local setups can
// keep the password inline.
func DSN(template, password string) (string, error) {
	if template == "" {
		return "", ErrNoDSN
	}
	switch n := strings.Count(template, "%s"); n {
	case 0:
		return template, nil
	case 1:
		return fmt.Sprintf(template, password), nil
	default:
		return "", fmt.Errorf("database: DSN has %d placeholders, want at most one", n)
	}
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle per pool.
func OpenWithOptions(dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	return openDriver("mysql", dsn, maxOpen, maxIdle)
}

func openDriver(driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks p within PingTimeout.
func Ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	return p.PingContext(ctx)
}

// Unavailable is a Pinger that always fails with Err.  cmd/web installs it
// when the pool could not be opened so readiness keeps reporting the cause.
type Unavailable struct{ Err error }

// PingContext returns u.Err.
func (u Unavailable) PingContext(context.Context) error { return u.Err }

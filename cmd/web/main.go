// cmd/web/main.go
//
// fleetapp – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load env vars (host-wide file → .env fallback).
//
//  2. Start the logger with defaults so settings bootstrap can log.
//
//  3. Load Settings.  On provisioned hosts this resolves the database
//     password, signing secret, and API keys from the secret store; a
//     failure there leaves the field empty and logs a warning.
//
//  4. Restart the logger with the configured level and file sink.
//
//  5. Open the database pool when DATABASE_DSN is set.  An open failure is
//     logged and reported by /health/ready, it does not stop the process.
//
//  6. Build the router and serve until SIGINT/SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/fleetapp/internal/api"
	"github.com/yanizio/fleetapp/internal/config"
	"github.com/yanizio/fleetapp/internal/database"
	"github.com/yanizio/fleetapp/internal/logger"
	"github.com/yanizio/fleetapp/internal/server"
)

const serverEnvPath = "/usr/local/etc/fleetapp/app.env"

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	tty := runningInTTY()
	if _, err := logger.New(logger.Options{TTY: tty}); err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Settings ─────────────────────────────────────────────────────
	//
	settings, err := config.Get(ctx)
	if err != nil {
		zap.S().Fatalw("load settings", "err", err)
	}

	logOut, err := logger.New(logger.Options{Dir: settings.Log.Dir, Debug: settings.Debug, TTY: tty})
	if err != nil {
		log.Fatalf("restart logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	for _, r := range settings.Resolutions() {
		logOut.Debugw("secret resolved", "key", r.Key, "group", r.Group, "source", r.Source.String())
	}

	//
	// ── 2.  Optional database pool ───────────────────────────────────────
	//
	var opts api.Options
	if settings.Database.DSN != "" {
		opts.DB = openDatabase(settings, logOut)
		if c, ok := opts.DB.(io.Closer); ok {
			defer c.Close()
		}
	}

	//
	// ── 3.  Router + server ──────────────────────────────────────────────
	//
	srv := server.New(settings.HTTP.ListenAddr, api.NewRouter(settings, opts))
	if err := server.Run(ctx, srv); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
	logOut.Infow("stopped")
}

// openDatabase returns the live pool, or a Pinger that reports why it
// could not be opened.
func openDatabase(s *config.Settings, logOut *zap.SugaredLogger) database.Pinger {
	dsn, err := database.DSN(s.Database.DSN, s.Database.Password.Reveal())
	if err != nil {
		logOut.Errorw("database DSN", "err", err)
		return database.Unavailable{Err: err}
	}

	logOut.Infow("connecting to database")
	db, err := database.Open(dsn)
	if err != nil {
		logOut.Errorw("connect database", "err", err, "password_set", s.Database.Password.IsSet())
		return database.Unavailable{Err: err}
	}
	logOut.Infow("database online")
	return db
}

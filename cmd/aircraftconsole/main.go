package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"aircraftconsole/internal/auth"
	"aircraftconsole/internal/config"
	"aircraftconsole/internal/console"
	"aircraftconsole/internal/db"
	"aircraftconsole/internal/dbinit"
	apphttp "aircraftconsole/internal/http"
	"aircraftconsole/internal/http/middleware"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/notify"
	"aircraftconsole/internal/telegram"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	clientTTL       = 12 * time.Hour
	storageTTL      = 7 * 24 * time.Hour
	housekeepPeriod = 15 * time.Minute
)

func main() {
	path := "config.yaml"
	if p := os.Getenv("ACC_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if cfg == nil {
		panic(err)
	}

	l := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(l)

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		slog.Warn("Could not get `config.yaml` file. Will run with environment values only")
		err = cfg.Validate()
	}
	if missing := cfg.MissingURLs(); len(missing) > 0 {
		slog.Error("config.missing_urls", "missing", strings.Join(missing, ", "))
		os.Exit(1)
	}
	if err != nil {
		slog.Error("config.invalid", "err", err)
		os.Exit(1)
	}
	if cfg.Security.Secret == "change-me" {
		slog.Warn("The cookie secret is the default value. This is a security risk in production.")
	}

	signer := auth.NewSigner(cfg.Security.Secret)
	sealer, err := auth.NewSealer(cfg.Security.Secret)
	if err != nil {
		slog.Error("auth.sealer", "err", err)
		os.Exit(1)
	}

	rootCtx, stopHousekeeping := context.WithCancel(context.Background())
	defer stopHousekeeping()

	s := &apphttp.Server{
		Config:       cfg,
		Clients:      console.NewClients(clientTTL),
		Signer:       signer,
		Sealer:       sealer,
		StockAlerts:  notify.NewStockAlerts(telegram.New(cfg.Telegram.BotToken, cfg.Telegram.GroupChatID)),
		HTTPClient:   &http.Client{Timeout: cfg.API.Timeout},
		LoginLimiter: middleware.NewRateLimiter(10, time.Minute),
	}

	if cfg.Sessions.Driver == "postgres" {
		pool := openSessionDB(cfg)
		defer pool.Close()
		s.DB = pool
		s.Ready = func(ctx context.Context) error { return db.Ping(ctx, pool) }
		go purgeStorage(rootCtx, pool)
	}
	go sweepClients(rootCtx, s.Clients)

	mux, err := apphttp.NewMux(s)
	if err != nil {
		slog.Error("Couldn't parse templates", "err", err)
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      apphttp.WithStandardMiddleware(signer, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http.starting", "addr", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http.listen", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopHousekeeping()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http.shutting_down")
	_ = srv.Shutdown(ctx)
	slog.Info("http.stopped")
}

// openSessionDB ensures the session database exists and is migrated, then opens the pool.
func openSessionDB(cfg *config.Config) *pgxpool.Pool {
	appURL, err := cfg.Sessions.Database.AppURL()
	if err != nil {
		slog.Error("db.url", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	d := cfg.Sessions.Database
	if err := dbinit.EnsureDatabaseAndMigrate(ctx, appURL, d.Name, d.User); err != nil {
		slog.Error("db.init", "err", err)
		os.Exit(1)
	}
	slog.Info("db.migrated", "database", d.Name)

	ctxpool, cancelpool := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancelpool()
	pool, err := db.NewPool(ctxpool, appURL)
	if err != nil {
		slog.Error("db.pool", "err", err)
		os.Exit(1)
	}
	return pool
}

func sweepClients(ctx context.Context, clients *console.Clients) {
	t := time.NewTicker(housekeepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := clients.Sweep(); n > 0 {
				slog.Debug("clients.swept", "dropped", n, "live", clients.Len())
			}
		}
	}
}

func purgeStorage(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(housekeepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := dbinit.PurgeStaleStorage(ctx, pool, storageTTL)
			if err != nil {
				slog.Warn("db.purge", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("db.purged", "rows", n)
			}
		}
	}
}

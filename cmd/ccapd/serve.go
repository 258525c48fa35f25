package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ccapconnect/dashboard/internal/api"
	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/config"
	"github.com/ccapconnect/dashboard/internal/metrics"
	"github.com/ccapconnect/dashboard/internal/ratelimit"
	"github.com/ccapconnect/dashboard/internal/session"
	"github.com/ccapconnect/dashboard/internal/ui"
	"github.com/ccapconnect/dashboard/internal/upstream"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	slog.Info("session store ready", "store", cfg.Session.Store)

	m := metrics.New()

	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	client.SetMetrics(m)

	controller := auth.NewController(store, client)
	controller.SetMetrics(m)
	// The memory and file stores can count their sessions locally; redis
	// cannot (the database may be shared), so the gauge is omitted there.
	if counter, ok := store.(interface{ Len() int }); ok {
		m.RegisterSessionCollector(counter.Len)
	}

	cookies, err := auth.NewCookieCodec(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookies)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		Controller:     controller,
		Guard:          auth.NewGuard(controller, cookies),
		Cookies:        cookies,
		Client:         client,
		Limiter:        ratelimit.New(cfg.RateLimit.LoginAttempts, cfg.RateLimit.Window),
		Metrics:        m,
		UI:             ui.Handler(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// newSessionStore builds the configured session store. The returned close
// function is nil for stores that hold no external connection.
func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func() error, error) {
	cipher, err := session.NewCipher(cfg.Secret)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Store {
	case "memory":
		return session.NewMemoryStore(), nil, nil
	case "file":
		s, err := session.NewFileStore(cfg.Dir, cipher)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "redis":
		s, err := session.NewRedisStore(ctx, cfg.RedisURL, cipher, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

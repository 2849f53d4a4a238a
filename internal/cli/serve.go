package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"meetme/internal/auth"
	"meetme/internal/config"
	"meetme/internal/session"
	"meetme/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				app.Config.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config)")
	return cmd
}

func serve(ctx context.Context, app *App) error {
	cfg := app.Config
	oauthCfg, err := auth.LoadConfig(app.CredentialsPath)
	if err != nil {
		return err
	}
	flow := auth.NewWebFlow(oauthCfg, cfg.BaseURL+"/oauth2callback")

	store, ready, closeStore, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := web.NewServer(web.Options{
		Flow:          flow,
		Providers:     web.GoogleProviders(flow, app.Feeds(), app.Logger),
		Store:         store,
		Location:      app.Location,
		Hours:         app.Hours,
		Calendars:     cfg.Calendars,
		Secret:        cfg.SessionSecret,
		SecureCookies: strings.HasPrefix(cfg.BaseURL, "https://"),
		SessionTTL:    cfg.SessionTTL(),
		Logger:        app.Logger,
		Ready:         ready,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("http server starting", "addr", cfg.Listen, "base_url", cfg.BaseURL, "sessions", cfg.SessionBackend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("http server shutdown error", "err", err)
		return err
	}
	app.Logger.Info("http server stopped")
	return nil
}

// newSessionStore picks the session backend from config. The returned check
// backs /readyz.
func newSessionStore(cfg *config.Config) (session.Store, func(context.Context) error, func(), error) {
	if cfg.SessionBackend != config.BackendRedis {
		return session.NewMemoryStore(cfg.SessionTTL(), 0), nil, func() {}, nil
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil, nil, errors.New("session_backend is redis but redis_addr is empty")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	store := session.NewRedisStore(rdb, cfg.SessionTTL(), "meetme:session")
	return store, store.Ping, func() { _ = rdb.Close() }, nil
}

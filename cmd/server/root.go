package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sortmemo/internal/config"
	apphttp "sortmemo/internal/http"
	"sortmemo/internal/integrations/webhook"
	"sortmemo/internal/logging"
	storepkg "sortmemo/internal/store"
	"sortmemo/internal/store/memory"
	"sortmemo/internal/store/postgres"
	"sortmemo/internal/store/redis"
	"sortmemo/internal/store/sqlite"
)

type storeOpener func(cfg config.Config) storepkg.Store

type cli struct {
	envFile   string
	cfg       config.Config
	openStore storeOpener
}

func newRootCmd(open storeOpener) *cobra.Command {
	c := &cli{openStore: open}
	root := &cobra.Command{
		Use:           "sortmemo",
		Short:         "Remembers list view sort order per user and content type",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if insecure := cfg.InsecureSecrets(); len(insecure) > 0 {
				log.Warn().Strs("settings", insecure).Msg("signing secret uses the built-in default, set a private value")
			}
			c.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "path to a .env file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	})
	root.AddCommand(c.newPrefsCmd())
	return root
}

func (c *cli) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := c.cfg
	st := c.openStore(cfg)
	defer st.Close()

	publisher := webhook.NewClient(
		cfg.WebhookURL,
		cfg.WebhookTimeout,
		cfg.WebhookMaxRetries,
		cfg.WebhookRetryBase,
		cfg.WebhookRetryMax,
	)
	srv := apphttp.NewServer(cfg, st, publisher)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.StoreMode).Msg("sortmemo listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

// openStore picks the configured backend and falls back to memory when it
// cannot be reached.
func openStore(cfg config.Config) storepkg.Store {
	var (
		st  storepkg.Store
		err error
	)
	switch cfg.StoreMode {
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			log.Warn().Msg("DATABASE_URL is empty, using memory store")
			return memory.NewStore()
		}
		st, err = postgres.NewStore(cfg.DatabaseURL)
	case config.StoreSQLite:
		st, err = sqlite.NewStore(cfg.SQLitePath)
	case config.StoreRedis:
		st, err = redis.NewStore(redis.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	default:
		return memory.NewStore()
	}
	if err != nil {
		log.Warn().Err(err).Str("store", cfg.StoreMode).Msg("store unavailable, falling back to memory store")
		return memory.NewStore()
	}
	return st
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trendaryo/config"
	"trendaryo/db"
	"trendaryo/rdx"
	"trendaryo/repository/mongodb"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var memoryMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront API server",
	Long: `Start the HTTP API backed by MongoDB and Redis.

With --memory every store lives in process, which is handy for local
frontend work and demos. Nothing is kept across restarts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&memoryMode, "memory", false, "use in-memory stores instead of MongoDB and Redis")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var b *backends
	if memoryMode {
		log.Warn().Msg("running with in-memory stores; data is lost on exit")
		b = memoryBackends()
	} else {
		database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			db.Disconnect(shutdownCtx)
		}()
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
		conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer conn.Close()
		b = redisBackends(mongodb.NewStore(database), conn)
	}

	app := newApp(cfg, b)
	go app.Hub.Run(ctx)
	go app.Limiter.Sweep(ctx, time.Minute)
	go app.AuthLimiter.Sweep(ctx, time.Minute)
	if !memoryMode {
		go func() {
			if err := b.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event worker stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		log.Info().Msg("closing live connections")
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

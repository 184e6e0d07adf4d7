package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keep-notes/auth"
	"keep-notes/config"
	"keep-notes/db"
	"keep-notes/handlers"
	"keep-notes/logger"
	appmw "keep-notes/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}
	logg := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error("server stopped", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *slog.Logger) error {
	logg.Info("starting keep-notes", slog.String("env", cfg.Env), slog.String("store", cfg.Store))

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if cfg.AllowSelfAssignedRole {
		logg.Warn("ALLOW_SELF_ASSIGNED_ROLE is on: anyone can register as admin")
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	codec := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	guard := appmw.NewGuard(codec, store, logg)
	h := handlers.New(logg, store, hasher, codec, handlers.Options{
		AllowSelfAssignedRole: cfg.AllowSelfAssignedRole,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(h, guard, cfg.CORSAllowedOrigins),
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("server running", slog.String("address", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		return db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.StoreMySQL:
		return db.ConnectMySQL(ctx, cfg.DSN)
	case config.StoreMemory:
		return db.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// Package main запускает HTTP-сервер консоли автомойки.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/carwash-console/internal/auth"
	"github.com/mmeshcher/carwash-console/internal/config"
	"github.com/mmeshcher/carwash-console/internal/handler"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/middleware"
	"github.com/mmeshcher/carwash-console/internal/repository"
	"github.com/mmeshcher/carwash-console/internal/service"
)

// store - хранилище вместе с необязательным фоновым процессом доставки изменений.
type store struct {
	repo   service.Repository
	listen func(ctx context.Context) error
}

func openStore(cfg *config.Config) (store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			return store{}, err
		}
		return store{repo: repo, listen: repo.Listen}, nil
	case config.DriverBolt:
		repo, err := repository.NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return store{}, err
		}
		return store{repo: repo}, nil
	default:
		return store{repo: repository.NewMemoryRepository()}, nil
	}
}

func newAuthenticator(cfg *config.Config) (*auth.StaticAuthenticator, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" {
		var err error
		if hash, err = auth.HashPassword(cfg.AdminPassword); err != nil {
			return nil, err
		}
	}
	return auth.NewStaticAuthenticator(cfg.AdminUsername, hash)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		sugar.Fatalw("admin credentials error", "error", err.Error())
	}

	composer, err := messaging.NewComposer(cfg.CountryCode, cfg.ShopName)
	if err != nil {
		sugar.Fatalw("messaging initialization error", "error", err.Error())
	}

	st, err := openStore(cfg)
	if err != nil {
		sugar.Fatalw("store initialization error", "driver", cfg.StoreDriver, "error", err.Error())
	}

	svc := service.NewService(st.repo, service.Options{
		Logger:   logger,
		Location: loc,
		ShopName: cfg.ShopName,
		Composer: composer,
	})
	defer svc.Close()

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.SessionSecret)
	if err != nil {
		sugar.Fatalw("session key error", "error", err.Error())
	}
	h := handler.NewHandler(svc, authenticator, logger, authMiddleware)

	r := h.SetupRouter(cfg.CORSOrigins)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if err := svc.StartLoyaltyProjection(ctx); err != nil {
		sugar.Fatalw("loyalty projection error", "error", err.Error())
	}

	// Доставка изменений из Postgres подписчикам
	if st.listen != nil {
		g.Go(func() error {
			return st.listen(ctx)
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting carwash console", "addr", cfg.RunAddress, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

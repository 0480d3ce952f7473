package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/handlers"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/middleware"
	"github.com/Potenup-community/backend-sub002/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run serves the HTTP API until ctx is done. With outbox.embedded_worker the
// publisher runs in the same process and stops with the server.
func Run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	conn, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Outbox.EmbeddedWorker {
		broker, closeBroker, err := BuildBroker(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeBroker()

		publisher, err := newPublisher(cfg, conn, broker, log)
		if err != nil {
			return err
		}
		group.Go(func() error { return publisher.Run(groupCtx) })
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      newEngine(cfg, conn, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	group.Go(func() error {
		log.Infof("bootstrap: server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.WithError(err).Error("server error")
		return err
	}
	return nil
}

func newEngine(cfg config.Config, conn *persistence.DB, log *logrus.Logger) *gin.Engine {
	events := persistence.NewOutboxRepository(conn, cfg.Outbox.MaxAttempts)
	reviews := usecase.NewResumeReview(conn, persistence.NewResumeReviewRepository(conn), events, outbox.NewFactory(), log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery())

	handler := handlers.NewHandler(reviews, usecase.NewOutbox(events, log), conn)
	handlers.NewRouter(handler).RegisterRoutes(router, middleware.IdempotencyRequired(!cfg.IsProduction()))
	return router
}

package bootstrap

import (
	"context"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/Potenup-community/backend-sub002/internal/usecase"
	"github.com/sirupsen/logrus"
)

// RunWorker runs the outbox publisher alone until ctx is done.
func RunWorker(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, closeBroker, err := BuildBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	publisher, err := newPublisher(cfg, db, broker, log)
	if err != nil {
		return err
	}
	return publisher.Run(ctx)
}

func newPublisher(cfg config.Config, db *persistence.DB, broker outbox.Broker, log *logrus.Logger) (*outbox.Publisher, error) {
	events := persistence.NewOutboxRepository(db, cfg.Outbox.MaxAttempts)
	reviews := usecase.NewResumeReview(db, persistence.NewResumeReviewRepository(db), events, outbox.NewFactory(), log)

	hooks := outbox.NewHooks()
	if err := reviews.RegisterHooks(hooks); err != nil {
		return nil, err
	}

	return outbox.NewPublisher(events, broker, log,
		outbox.WithConfig(outbox.Config{
			PollInterval:   cfg.Outbox.PollInterval,
			BatchSize:      cfg.Outbox.BatchSize,
			PublishTimeout: cfg.Outbox.PublishTimeout,
		}),
		outbox.WithRetryPolicy(retryPolicy(cfg.Outbox.Retry)),
		outbox.WithHooks(hooks),
	)
}

func retryPolicy(cfg config.Retry) outbox.RetryPolicy {
	if cfg.Strategy == config.RetryFixed {
		return outbox.FixedRetry{Delay: cfg.Delay}
	}
	return outbox.ExponentialRetry{
		InitialDelay: cfg.Delay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       cfg.Jitter,
	}
}

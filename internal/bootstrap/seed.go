package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/Potenup-community/backend-sub002/internal/usecase"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Seed requests count fake reviews. Every review goes through the use case so each
// one gets its outbox record; batchSize bounds how many share a transaction.
func Seed(ctx context.Context, cfg config.Config, log *logrus.Logger, count, batchSize int) error {
	if count <= 0 {
		count = 10
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	conn, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	events := persistence.NewOutboxRepository(conn, cfg.Outbox.MaxAttempts)
	reviews := usecase.NewResumeReview(conn, persistence.NewResumeReviewRepository(conn), events, outbox.NewFactory(), log)

	n, err := seedReviews(ctx, conn, reviews, count, batchSize)
	if err != nil {
		return err
	}
	log.Infof("bootstrap: seeded %d resume reviews", n)
	return nil
}

func seedReviews(ctx context.Context, conn *persistence.DB, reviews service.ResumeReviewService, count, batchSize int) (int, error) {
	seeded := 0
	for seeded < count {
		size := min(batchSize, count-seeded)
		err := conn.WithTx(ctx, func(txCtx context.Context) error {
			for i := 0; i < size; i++ {
				if _, _, err := reviews.Request(txCtx, fakeReviewRequest(), "", ""); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return seeded, fmt.Errorf("seed batch at %d: %w", seeded, err)
		}
		seeded += size
	}
	return seeded, nil
}

func fakeReviewRequest() service.RequestReview {
	content := strings.Join([]string{
		fmt.Sprintf("%s %s", faker.FirstName(), faker.LastName()),
		faker.Email(),
		faker.Paragraph(),
	}, "\n")
	return service.RequestReview{
		RequesterID: uuid.New(),
		ResumeID:    uuid.New(),
		Content:     content,
	}
}

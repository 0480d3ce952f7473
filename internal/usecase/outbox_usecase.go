package usecase

import (
	"context"
	"strings"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/sirupsen/logrus"
)

type Outbox struct {
	repo repository.OutboxRepository
	log  *logrus.Logger
}

var _ service.OutboxService = (*Outbox)(nil)

func NewOutbox(repo repository.OutboxRepository, log *logrus.Logger) *Outbox {
	return &Outbox{repo: repo, log: log}
}

func (u *Outbox) List(ctx context.Context, status string, limit int) ([]entity.OutboxEvent, error) {
	filter := entity.OutboxStatus(strings.ToUpper(strings.TrimSpace(status)))
	if filter != "" && !filter.IsValid() {
		return nil, service.ErrInvalidOutboxStatus
	}
	events, err := u.repo.List(ctx, filter, limit)
	if err != nil {
		u.log.WithError(err).Error("list outbox events failed")
		return nil, err
	}
	return events, nil
}

package usecase

import (
	"context"
	"errors"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/sirupsen/logrus"
)

var ErrDedupKeyMissing = errors.New("message has no dedup key")

// Inbox is the consumer side of the outbox: each dedup key is processed once no
// matter how often the broker redelivers it.
type Inbox struct {
	repo repository.ConsumedMessageRepository
	log  *logrus.Logger
}

var _ service.InboxService = (*Inbox)(nil)

func NewInbox(repo repository.ConsumedMessageRepository, log *logrus.Logger) *Inbox {
	return &Inbox{repo: repo, log: log}
}

func (u *Inbox) Consume(ctx context.Context, msg entity.ConsumedMessage) (bool, error) {
	if msg.DedupKey == "" {
		return false, ErrDedupKeyMissing
	}
	if len(msg.Payload) == 0 {
		msg.Payload = []byte("null")
	}

	duplicate, err := u.repo.Record(ctx, msg)
	if err != nil {
		return false, err
	}

	entry := u.log.WithFields(logrus.Fields{
		"dedup_key":  msg.DedupKey,
		"message_id": msg.MessageID,
		"event_type": msg.EventType,
	})
	if duplicate {
		entry.Info("inbox: duplicate delivery skipped")
		return true, nil
	}
	entry.Info("inbox: message consumed")
	return false, nil
}

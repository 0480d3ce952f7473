package bootstrap

import (
	"context"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/infra/messaging"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/Potenup-community/backend-sub002/internal/usecase"
	"github.com/sirupsen/logrus"
)

// RunConsumer records every delivered outbox message in the inbox table until ctx
// is done.
func RunConsumer(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := connectBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	inbox := usecase.NewInbox(persistence.NewConsumedMessageRepository(db), log)
	return client.Consume(ctx, inboxHandler(inbox))
}

func inboxHandler(inbox service.InboxService) messaging.Handler {
	return func(ctx context.Context, msg messaging.InboundMessage) error {
		dedupKey := msg.DedupKey
		if dedupKey == "" {
			dedupKey = msg.ID
		}
		_, err := inbox.Consume(ctx, entity.ConsumedMessage{
			DedupKey:  dedupKey,
			MessageID: msg.ID,
			EventType: msg.EventType,
			Payload:   msg.Body,
		})
		return err
	}
}

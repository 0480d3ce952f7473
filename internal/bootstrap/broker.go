package bootstrap

import (
	"context"
	"fmt"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/infra/messaging"
	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/sirupsen/logrus"
)

// Consumer reads published outbox messages back from the broker.
type Consumer interface {
	Consume(ctx context.Context, handler messaging.Handler) error
}

type brokerClient interface {
	outbox.Broker
	Consumer
	Close()
}

func connectBroker(ctx context.Context, cfg config.Config, log *logrus.Logger) (brokerClient, error) {
	switch cfg.Broker.Driver {
	case config.BrokerRabbitMQ:
		return messaging.NewRabbitMQ(cfg.RabbitMQ, log)
	case config.BrokerNATS:
		return messaging.NewNATS(ctx, cfg.NATS, log)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

// BuildBroker connects the configured broker for publishing, behind a circuit breaker
// when enabled. The returned close releases the connection.
func BuildBroker(ctx context.Context, cfg config.Config, log *logrus.Logger) (outbox.Broker, func(), error) {
	client, err := connectBroker(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.Broker.Driver, err)
	}
	return wrapBroker(client, cfg, log), client.Close, nil
}

func wrapBroker(broker outbox.Broker, cfg config.Config, log *logrus.Logger) outbox.Broker {
	if !cfg.Outbox.Breaker.Enabled {
		return broker
	}
	return messaging.NewBreakerBroker(broker, messaging.BreakerSettings{
		Name:        cfg.Broker.Driver,
		MaxFailures: cfg.Outbox.Breaker.MaxFailures,
		OpenTimeout: cfg.Outbox.Breaker.OpenTimeout,
	}, log)
}

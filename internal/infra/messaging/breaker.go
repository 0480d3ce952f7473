package messaging

import (
	"context"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/outbox"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerBroker fails publishes fast while the wrapped broker keeps failing. An open
// breaker surfaces as gobreaker.ErrOpenState, which the poller records like any other
// delivery failure.
type BreakerBroker struct {
	next    outbox.Broker
	breaker *gobreaker.CircuitBreaker
}

var _ outbox.Broker = (*BreakerBroker)(nil)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

func NewBreakerBroker(next outbox.Broker, settings BreakerSettings, log *logrus.Logger) *BreakerBroker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Name == "" {
		settings.Name = "outbox-broker"
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("broker circuit breaker changed state")
		},
	})

	return &BreakerBroker{next: next, breaker: cb}
}

func (b *BreakerBroker) Publish(ctx context.Context, msg outbox.Message) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, msg)
	})
	return err
}

func (b *BreakerBroker) State() gobreaker.State {
	return b.breaker.State()
}

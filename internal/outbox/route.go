package outbox

import (
	"fmt"
	"strings"
)

// Route is where an event type is delivered on the broker.
type Route struct {
	EventType  string
	Exchange   string
	RoutingKey string
}

// EventType is a closed set of outbox event types. Its unexported methods can only be
// implemented in this package, and every variant must implement route, so a new event
// type without a route does not compile.
type EventType interface {
	Name() string
	route() Route
	dedupPrefix() string
}

const resumeReviewExchange = "resume.review"

type resumeReviewRequested struct{}

func (resumeReviewRequested) Name() string { return "ResumeReviewRequested" }

func (resumeReviewRequested) route() Route {
	return Route{EventType: "ResumeReviewRequested", Exchange: resumeReviewExchange, RoutingKey: "resume.review.requested"}
}

func (resumeReviewRequested) dedupPrefix() string { return "rr:req:" }

type resumeReviewCompleted struct{}

func (resumeReviewCompleted) Name() string { return "ResumeReviewCompleted" }

func (resumeReviewCompleted) route() Route {
	return Route{EventType: "ResumeReviewCompleted", Exchange: resumeReviewExchange, RoutingKey: "resume.review.completed"}
}

func (resumeReviewCompleted) dedupPrefix() string { return "rr:done:" }

var (
	ResumeReviewRequested EventType = resumeReviewRequested{}
	ResumeReviewCompleted EventType = resumeReviewCompleted{}
)

// EventTypes lists every event type; brokers use it to declare destinations.
func EventTypes() []EventType {
	return []EventType{ResumeReviewRequested, ResumeReviewCompleted}
}

// Resolve returns the broker route of eventType.
func Resolve(eventType EventType) Route {
	return eventType.route()
}

// Routes returns the route of every event type.
func Routes() []Route {
	types := EventTypes()
	routes := make([]Route, 0, len(types))
	for _, eventType := range types {
		routes = append(routes, Resolve(eventType))
	}
	return routes
}

// ParseEventType maps a stored event type name back to its variant.
func ParseEventType(name string) (EventType, error) {
	name = strings.TrimSpace(name)
	for _, eventType := range EventTypes() {
		if eventType.Name() == name {
			return eventType, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, name)
}

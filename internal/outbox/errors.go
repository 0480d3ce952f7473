package outbox

import "errors"

var (
	ErrRepositoryRequired    = errors.New("outbox repository is required")
	ErrBrokerRequired        = errors.New("outbox broker is required")
	ErrDomainIDRequired      = errors.New("outbox domain id is required")
	ErrContentHashRequired   = errors.New("outbox content hash is required")
	ErrPayloadTooLarge       = errors.New("outbox payload exceeds maximum allowed size")
	ErrUnknownEventType      = errors.New("unknown outbox event type")
	ErrHookRequired          = errors.New("post-publish hook is required")
	ErrHookAlreadyRegistered = errors.New("post-publish hook already registered")
	ErrTickInProgress        = errors.New("outbox batch already in progress")
)

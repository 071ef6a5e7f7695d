package mesh

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDestination = errors.New("mesh: unknown destination")
	ErrSeedNotFound       = errors.New("mesh: seed not found")
	ErrMalformedPayload   = errors.New("mesh: malformed payload")
	ErrNotAttached        = errors.New("mesh: node not attached to a network")
	ErrEmptyDestination   = errors.New("mesh: empty destination")
	ErrUnknownMessageType = errors.New("mesh: unknown message type")
	ErrEmptyNodeID        = errors.New("mesh: empty node id")
	ErrEmptySeedID        = errors.New("mesh: empty seed id")
	ErrNilNode            = errors.New("mesh: nil node")
	ErrBroadcastLoop      = errors.New("mesh: broadcast re-entered a broadcasting node")
	ErrStepLimit          = errors.New("mesh: drain step limit reached")
)

// PayloadError reports a missing or mistyped payload key.
type PayloadError struct {
	Type   MessageType
	Key    string
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("mesh: malformed %s payload key=%q: %s", e.Type, e.Key, e.Reason)
}

func (e *PayloadError) Unwrap() error {
	return ErrMalformedPayload
}

func requireString(msg Message, key string) (string, error) {
	raw, ok := msg.Payload[key]
	if !ok {
		return "", &PayloadError{Type: msg.Type, Key: key, Reason: "missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &PayloadError{Type: msg.Type, Key: key, Reason: fmt.Sprintf("want string, got %T", raw)}
	}
	if s == "" {
		return "", &PayloadError{Type: msg.Type, Key: key, Reason: "empty"}
	}
	return s, nil
}

func requireSeed(msg Message, key string) (Seed, error) {
	raw, ok := msg.Payload[key]
	if !ok || raw == nil {
		return nil, &PayloadError{Type: msg.Type, Key: key, Reason: "missing"}
	}
	switch v := raw.(type) {
	case Seed:
		return v, nil
	case map[string]any:
		return Seed(v), nil
	default:
		return nil, &PayloadError{Type: msg.Type, Key: key, Reason: fmt.Sprintf("want map, got %T", raw)}
	}
}

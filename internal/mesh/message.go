package mesh

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// MessageType is the closed set of mesh message kinds.
type MessageType uint8

const (
	SeedRequest MessageType = iota + 1
	SeedResponse
	SeedData
	NetworkPing
	NetworkPong
)

var messageTypeNames = map[MessageType]string{
	SeedRequest:  "seed_request",
	SeedResponse: "seed_response",
	SeedData:     "seed_data",
	NetworkPing:  "network_ping",
	NetworkPong:  "network_pong",
}

// MessageTypes returns every kind in wire order.
func MessageTypes() []MessageType {
	return []MessageType{SeedRequest, SeedResponse, SeedData, NetworkPing, NetworkPong}
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("message_type(%d)", uint8(t))
}

func (t MessageType) Valid() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// ParseMessageType accepts the wire tag in either case.
func ParseMessageType(raw string) (MessageType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for t, name := range messageTypeNames {
		if name == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw)
}

// Payload keys understood by the node handlers.
const (
	KeySeedID    = "seed_id"
	KeySeedData  = "seed_data"
	KeyTimestamp = "timestamp"
)

// BroadcastAddress is the conventional destination for broadcast messages.
const BroadcastAddress = "*"

// Payload is the string keyed message body. The core does not validate its schema.
type Payload map[string]any

// Seed is an opaque seed record. The core stores and moves it by key only.
type Seed map[string]any

// Message is one routed unit. It is built once per send and not mutated afterwards.
type Message struct {
	Type        MessageType
	Source      string
	Destination string
	Payload     Payload
	Timestamp   float64
}

// NewMessage assembles a message, copying payload so later caller writes do not leak in.
func NewMessage(t MessageType, source, destination string, payload Payload, timestamp float64) (Message, error) {
	msg := Message{
		Type:        t,
		Source:      source,
		Destination: destination,
		Payload:     clonePayload(payload),
		Timestamp:   timestamp,
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate enforces the construction rules: known type and a destination.
func (m Message) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMessageType, uint8(m.Type))
	}
	if strings.TrimSpace(m.Destination) == "" {
		return ErrEmptyDestination
	}
	return nil
}

func (m Message) String() string {
	return fmt.Sprintf("%s %s->%s", m.Type, m.Source, m.Destination)
}

// Timestamp converts t to the float seconds used in messages.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func SeedRequestPayload(seedID string) Payload {
	return Payload{KeySeedID: seedID}
}

func SeedDataPayload(seedID string, seed Seed) Payload {
	return Payload{KeySeedID: seedID, KeySeedData: seed}
}

func PingPayload(timestamp float64) Payload {
	return Payload{KeyTimestamp: timestamp}
}

func clonePayload(p Payload) Payload {
	if p == nil {
		return Payload{}
	}
	return maps.Clone(p)
}

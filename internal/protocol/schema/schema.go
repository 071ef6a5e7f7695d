package schema

import (
	"fmt"

	"github.com/danmuck/seedbank/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Message type IDs carried in the frame header. They match mesh.MessageType.
const (
	MsgSeedRequest  uint32 = 1
	MsgSeedResponse uint32 = 2
	MsgSeedData     uint32 = 3
	MsgNetworkPing  uint32 = 4
	MsgNetworkPong  uint32 = 5
)

// Field IDs inside the frame payload.
const (
	FieldSource      uint16 = 1
	FieldDestination uint16 = 2
	FieldTimestamp   uint16 = 3
	FieldPayload     uint16 = 4
	FieldSeedID      uint16 = 5
)

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var envelope = []Requirement{
	{FieldSource, tlv.TypeString},
	{FieldDestination, tlv.TypeString},
	{FieldTimestamp, tlv.TypeU64},
	{FieldPayload, tlv.TypeBytes},
}

// Seed-bearing kinds also carry the seed id outside the JSON payload so
// relays can index a frame without decoding it.
var requirements = map[uint32][]Requirement{
	MsgSeedRequest:  append(envelope[:len(envelope):len(envelope)], Requirement{FieldSeedID, tlv.TypeString}),
	MsgSeedResponse: envelope,
	MsgSeedData:     append(envelope[:len(envelope):len(envelope)], Requirement{FieldSeedID, tlv.TypeString}),
	MsgNetworkPing:  envelope,
	MsgNetworkPong:  envelope,
}

// Known reports whether messageType has a schema.
func Known(messageType uint32) bool {
	_, ok := requirements[messageType]
	return ok
}

// Validate enforces required fields and required field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint32, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		log.Error().Uint32("message_type", messageType).Msg("schema: unknown message type")
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Debug().
				Uint32("message_type", messageType).
				Uint16("field_id", req.ID).
				Msg("schema: missing field")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Uint32("message_type", messageType).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema: type mismatch")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}

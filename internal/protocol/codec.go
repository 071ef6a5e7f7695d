package protocol

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/protocol/frame"
	"github.com/danmuck/seedbank/internal/protocol/schema"
	"github.com/danmuck/seedbank/internal/protocol/tlv"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/s2"
)

// DefaultCompressAbove is the field stream size past which frames are s2 compressed.
const DefaultCompressAbove = 4 * 1024

type CodecOption func(*Codec)

func WithLimits(limits frame.Limits) CodecOption {
	return func(c *Codec) { c.limits = limits }
}

// WithCompressAbove sets the compression threshold; a negative value disables compression.
func WithCompressAbove(n int) CodecOption {
	return func(c *Codec) { c.compressAbove = n }
}

// Codec encodes mesh messages as seedbank frames. It satisfies mesh.Codec.
type Codec struct {
	limits        frame.Limits
	compressAbove int
	nextID        atomic.Uint64
}

func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		limits:        frame.DefaultLimits(),
		compressAbove: DefaultCompressAbove,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ mesh.Codec          = (*Codec)(nil)
	_ mesh.SeedNormalizer = (*Codec)(nil)
)

// NormalizeSeed returns seed as it reads back after a trip through the
// payload encoding: numbers as float64, lists as []any, objects as map[string]any.
func (c *Codec) NormalizeSeed(seed mesh.Seed) (mesh.Seed, error) {
	if seed == nil {
		return nil, nil
	}
	raw, err := json.Marshal(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadEncoding, err)
	}
	out := mesh.Seed{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadEncoding, err)
	}
	return out, nil
}

func (c *Codec) Encode(msg mesh.Message) ([]byte, error) {
	f, err := c.toFrame(msg)
	if err != nil {
		return nil, err
	}
	return frame.Marshal(f, c.limits)
}

func (c *Codec) Decode(b []byte) (mesh.Message, error) {
	f, err := frame.Unmarshal(b, c.limits)
	if err != nil {
		return mesh.Message{}, err
	}
	return c.fromFrame(f)
}

// WriteMessage streams one encoded message to w.
func (c *Codec) WriteMessage(w io.Writer, msg mesh.Message) error {
	f, err := c.toFrame(msg)
	if err != nil {
		return err
	}
	return frame.WriteFrame(w, f, c.limits)
}

// ReadMessage reads the next message from r.
func (c *Codec) ReadMessage(r io.Reader) (mesh.Message, error) {
	f, err := frame.ReadFrame(r, c.limits)
	if err != nil {
		return mesh.Message{}, err
	}
	return c.fromFrame(f)
}

func (c *Codec) toFrame(msg mesh.Message) (frame.Frame, error) {
	if err := msg.Validate(); err != nil {
		return frame.Frame{}, err
	}
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %v", ErrPayloadEncoding, err)
	}

	fields := []tlv.Field{
		tlv.StringField(schema.FieldSource, msg.Source),
		tlv.StringField(schema.FieldDestination, msg.Destination),
		tlv.F64Field(schema.FieldTimestamp, msg.Timestamp),
		tlv.BytesField(schema.FieldPayload, payload),
	}
	if seedID, ok := msg.Payload[mesh.KeySeedID].(string); ok {
		fields = append(fields, tlv.StringField(schema.FieldSeedID, seedID))
	}
	if err := schema.Validate(uint32(msg.Type), fields); err != nil {
		return frame.Frame{}, err
	}

	h := frame.Header{
		MessageID:   c.nextID.Add(1),
		MessageType: uint32(msg.Type),
	}
	if msg.Destination == mesh.BroadcastAddress {
		h.Flags |= frame.FlagBroadcast
	}
	body := tlv.EncodeFields(fields)
	if c.compressAbove >= 0 && len(body) > c.compressAbove {
		body = s2.Encode(nil, body)
		h.Flags |= frame.FlagCompressed
	}
	return frame.Frame{Header: h, Payload: body}, nil
}

func (c *Codec) fromFrame(f frame.Frame) (mesh.Message, error) {
	body := f.Payload
	if f.Header.Has(frame.FlagCompressed) {
		n, err := s2.DecodedLen(body)
		if err != nil {
			return mesh.Message{}, err
		}
		if uint64(n) > c.limits.MaxPayloadBytes {
			return mesh.Message{}, ErrCompressedTooLarge
		}
		if body, err = s2.Decode(nil, body); err != nil {
			return mesh.Message{}, err
		}
	}

	fields, err := tlv.DecodeFields(body)
	if err != nil {
		return mesh.Message{}, err
	}
	if err := schema.Validate(f.Header.MessageType, fields); err != nil {
		return mesh.Message{}, err
	}

	src, _ := tlv.GetField(fields, schema.FieldSource)
	dst, _ := tlv.GetField(fields, schema.FieldDestination)
	tsField, _ := tlv.GetField(fields, schema.FieldTimestamp)
	raw, _ := tlv.GetField(fields, schema.FieldPayload)

	ts, err := tlv.F64FromBytes(tsField.Value)
	if err != nil {
		return mesh.Message{}, err
	}
	payload := mesh.Payload{}
	if err := json.Unmarshal(raw.Value, &payload); err != nil {
		return mesh.Message{}, fmt.Errorf("%w: %v", ErrPayloadEncoding, err)
	}
	if payload == nil {
		payload = mesh.Payload{}
	}

	msg := mesh.Message{
		Type:        mesh.MessageType(f.Header.MessageType),
		Source:      string(src.Value),
		Destination: string(dst.Value),
		Payload:     payload,
		Timestamp:   ts,
	}
	if err := msg.Validate(); err != nil {
		return mesh.Message{}, err
	}
	return msg, nil
}

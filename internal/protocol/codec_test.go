package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/protocol/frame"
	"github.com/danmuck/seedbank/internal/protocol/schema"
	"github.com/danmuck/seedbank/internal/protocol/tlv"
	"github.com/danmuck/seedbank/internal/testutil/testlog"
)

func mustMessage(t *testing.T, mt mesh.MessageType, src, dst string, payload mesh.Payload) mesh.Message {
	t.Helper()
	msg, err := mesh.NewMessage(mt, src, dst, payload, 1712345678.5)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func TestMessageTypeIDsMatchMesh(t *testing.T) {
	testlog.Start(t)
	want := map[mesh.MessageType]uint32{
		mesh.SeedRequest:  schema.MsgSeedRequest,
		mesh.SeedResponse: schema.MsgSeedResponse,
		mesh.SeedData:     schema.MsgSeedData,
		mesh.NetworkPing:  schema.MsgNetworkPing,
		mesh.NetworkPong:  schema.MsgNetworkPong,
	}
	for mt, id := range want {
		if uint32(mt) != id || !schema.Known(id) {
			t.Fatalf("%s: mesh=%d schema=%d", mt, uint32(mt), id)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	testlog.Start(t)
	c := NewCodec()
	in := mustMessage(t, mesh.SeedData, "gateway", "school1", mesh.SeedDataPayload("s1", mesh.Seed{
		"title":   "Water Cycle",
		"subject": "science",
	}))

	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != in.Type || out.Source != in.Source || out.Destination != in.Destination || out.Timestamp != in.Timestamp {
		t.Fatalf("envelope mismatch: got=%+v want=%+v", out, in)
	}
	data, ok := out.Payload[mesh.KeySeedData].(map[string]any)
	if !ok || data["title"] != "Water Cycle" || out.Payload[mesh.KeySeedID] != "s1" {
		t.Fatalf("payload mismatch: %#v", out.Payload)
	}
}

func TestCodecFrameCarriesTypeAndSeedID(t *testing.T) {
	testlog.Start(t)
	c := NewCodec()
	b, err := c.Encode(mustMessage(t, mesh.SeedRequest, "school1", "gateway", mesh.SeedRequestPayload("s1")))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := frame.Unmarshal(b, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Header.MessageType != schema.MsgSeedRequest || f.Header.MessageID == 0 {
		t.Fatalf("unexpected header: %+v", f.Header)
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	seedID, ok := tlv.GetField(fields, schema.FieldSeedID)
	if !ok || string(seedID.Value) != "s1" {
		t.Fatalf("expected seed id field, got %+v", seedID)
	}
}

func TestCodecRejectsSeedRequestWithoutID(t *testing.T) {
	testlog.Start(t)
	msg := mustMessage(t, mesh.SeedRequest, "school1", "gateway", nil)
	_, err := NewCodec().Encode(msg)
	var ve schema.ValidationError
	if !errors.As(err, &ve) || ve.FieldID != schema.FieldSeedID {
		t.Fatalf("expected missing seed id validation error, got %v", err)
	}
}

func TestCodecCompressesLargeFrames(t *testing.T) {
	testlog.Start(t)
	c := NewCodec(WithCompressAbove(64))
	big := strings.Repeat("lesson ", 200)
	in := mustMessage(t, mesh.SeedData, "gateway", "*", mesh.SeedDataPayload("s1", mesh.Seed{"description": big}))

	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := frame.Unmarshal(b, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !f.Header.Has(frame.FlagCompressed) || !f.Header.Has(frame.FlagBroadcast) {
		t.Fatalf("expected compressed broadcast frame, flags=%b", f.Header.Flags)
	}
	if len(b) >= len(big) {
		t.Fatalf("expected compression to shrink the frame: %d >= %d", len(b), len(big))
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := out.Payload[mesh.KeySeedData].(map[string]any)
	if data["description"] != big {
		t.Fatalf("compressed payload mismatch")
	}
}

func TestCodecStreamReadWrite(t *testing.T) {
	testlog.Start(t)
	c := NewCodec()
	var buf bytes.Buffer
	msgs := []mesh.Message{
		mustMessage(t, mesh.NetworkPing, "a", "b", mesh.PingPayload(10.5)),
		mustMessage(t, mesh.NetworkPong, "b", "a", mesh.PingPayload(10.5)),
	}
	for _, msg := range msgs {
		if err := c.WriteMessage(&buf, msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, want := range msgs {
		got, err := c.ReadMessage(&buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Type != want.Type || got.Payload[mesh.KeyTimestamp] != 10.5 {
			t.Fatalf("stream mismatch: got=%+v want=%+v", got, want)
		}
	}
	if _, err := c.ReadMessage(&buf); !errors.Is(err, frame.ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader at end of stream, got %v", err)
	}
}

func TestCodecDecodeRejectsCorruptFrames(t *testing.T) {
	testlog.Start(t)
	c := NewCodec()
	if _, err := c.Decode([]byte{0x5E, 0xED}); !errors.Is(err, frame.ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}

	body := tlv.EncodeFields([]tlv.Field{
		tlv.StringField(schema.FieldSource, "a"),
		tlv.StringField(schema.FieldDestination, "b"),
		tlv.F64Field(schema.FieldTimestamp, 1),
		tlv.BytesField(schema.FieldPayload, []byte("{not json")),
	})
	b, err := frame.Marshal(frame.Frame{Header: frame.Header{MessageType: schema.MsgNetworkPing}, Payload: body}, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := c.Decode(b); !errors.Is(err, ErrPayloadEncoding) {
		t.Fatalf("expected ErrPayloadEncoding, got %v", err)
	}
}

func TestNetworkRoundTripThroughCodec(t *testing.T) {
	testlog.Start(t)
	trace := mesh.NewTraceLog()
	nw := mesh.NewNetwork(mesh.WithCodec(NewCodec()), mesh.WithTracer(trace))
	gateway, _ := mesh.NewNode("gateway", mesh.RoleGateway)
	leaf, _ := mesh.NewNode("school1", mesh.RoleLeaf)
	for _, n := range []*mesh.Node{gateway, leaf} {
		if err := nw.AddNode(n); err != nil {
			t.Fatalf("add node: %v", err)
		}
	}
	planted := mesh.Seed{
		"title": "X",
		"files": []string{"lesson.html", "video.mp4"},
		"pages": 12,
		"meta":  map[string]string{"lang": "id"},
	}
	if err := gateway.StoreSeed("s1", planted); err != nil {
		t.Fatalf("plant: %v", err)
	}

	if err := leaf.Send(mustMessage(t, mesh.SeedRequest, "school1", "gateway", mesh.SeedRequestPayload("s1"))); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := nw.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	want, _ := gateway.Seed("s1")
	got, ok := leaf.Seed("s1")
	if !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("seed mismatch after framed delivery: got=%#v want=%#v", got, want)
	}
	if want["pages"] != float64(12) {
		t.Fatalf("planted seed not stored in wire form: %#v", want)
	}
	if dropped := trace.Filter(mesh.TraceDropped); len(dropped) != 0 {
		t.Fatalf("unexpected drops: %+v", dropped)
	}
}

func TestNormalizeSeedMatchesDecodedPayload(t *testing.T) {
	testlog.Start(t)
	c := NewCodec()
	seed := mesh.Seed{"files": []string{"a.html"}, "size": int64(3), "ok": true}

	got, err := c.NormalizeSeed(seed)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := mesh.Seed{"files": []any{"a.html"}, "size": float64(3), "ok": true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalize: got=%#v want=%#v", got, want)
	}

	b, err := c.Encode(mustMessage(t, mesh.SeedData, "gateway", "school1", mesh.SeedDataPayload("s1", seed)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decoded, ok := msg.Payload[mesh.KeySeedData].(map[string]any)
	if !ok || !reflect.DeepEqual(mesh.Seed(decoded), got) {
		t.Fatalf("decoded seed differs from normalized form: %#v", msg.Payload[mesh.KeySeedData])
	}

	if out, err := c.NormalizeSeed(nil); err != nil || out != nil {
		t.Fatalf("nil seed: %v %v", out, err)
	}
	if _, err := c.NormalizeSeed(mesh.Seed{"bad": make(chan int)}); !errors.Is(err, ErrPayloadEncoding) {
		t.Fatalf("expected ErrPayloadEncoding, got %v", err)
	}
}

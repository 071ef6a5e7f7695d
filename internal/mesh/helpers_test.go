package mesh

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

func newTestNode(t *testing.T, id string, role Role) *Node {
	t.Helper()
	node, err := NewNode(id, role)
	if err != nil {
		t.Fatalf("new node %q: %v", id, err)
	}
	return node
}

// newTestNetwork registers ids in order; the first id is the gateway.
func newTestNetwork(t *testing.T, ids []string, opts ...Option) (*Network, *TraceLog, map[string]*Node) {
	t.Helper()
	trace := NewTraceLog()
	nw := NewNetwork(append([]Option{WithTracer(trace)}, opts...)...)
	nodes := make(map[string]*Node, len(ids))
	for i, id := range ids {
		role := RoleLeaf
		if i == 0 {
			role = RoleGateway
		}
		node := newTestNode(t, id, role)
		if err := nw.AddNode(node); err != nil {
			t.Fatalf("add node %q: %v", id, err)
		}
		nodes[id] = node
	}
	return nw, trace, nodes
}

func mustMessage(t *testing.T, mt MessageType, source, destination string, payload Payload) Message {
	t.Helper()
	msg, err := NewMessage(mt, source, destination, payload, 1000)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// recordingCodec keeps every encoded message and hands back its index as the frame.
type recordingCodec struct {
	mu         sync.Mutex
	encoded    []Message
	failDecode bool
}

func (c *recordingCodec) Encode(msg Message) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoded = append(c.encoded, msg)
	return []byte(strconv.Itoa(len(c.encoded) - 1)), nil
}

func (c *recordingCodec) Decode(frame []byte) (Message, error) {
	if c.failDecode {
		return Message{}, errors.New("corrupt frame")
	}
	idx, err := strconv.Atoi(string(frame))
	if err != nil {
		return Message{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoded[idx], nil
}

func (c *recordingCodec) messages(mt MessageType) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0)
	for _, msg := range c.encoded {
		if msg.Type == mt {
			out = append(out, msg)
		}
	}
	return out
}

// wireCodec marks every normalized seed so tests can see where normalization ran.
type wireCodec struct {
	recordingCodec
	failNormalize bool
}

func (c *wireCodec) NormalizeSeed(seed Seed) (Seed, error) {
	if c.failNormalize {
		return nil, errors.New("unencodable seed")
	}
	out := Seed{"wire": true}
	for k, v := range seed {
		out[k] = v
	}
	return out, nil
}

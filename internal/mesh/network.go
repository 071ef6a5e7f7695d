package mesh

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/seedbank/internal/observability"
	"github.com/rs/zerolog/log"
)

// DeliveryMode selects when queued messages are processed.
type DeliveryMode int

const (
	// DeliveryQueued leaves messages in the queue until Pump or Drain.
	DeliveryQueued DeliveryMode = iota
	// DeliveryImmediate drains the queue before the outermost Send returns.
	DeliveryImmediate
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryQueued:
		return "queued"
	case DeliveryImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("delivery(%d)", int(m))
	}
}

func ParseDeliveryMode(raw string) (DeliveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "queued", "queue":
		return DeliveryQueued, nil
	case "immediate", "sync":
		return DeliveryImmediate, nil
	default:
		return 0, fmt.Errorf("mesh: unknown delivery mode %q", raw)
	}
}

// DefaultMaxSteps bounds one Drain call.
const DefaultMaxSteps = 10000

// DefaultNetworkName labels the queue depth of networks built without WithName.
const DefaultNetworkName = "default"

// Codec turns messages into bytes for store-and-forward queueing.
type Codec interface {
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// SeedNormalizer is implemented by codecs whose round trip changes Go value
// types. Nodes on such a network store planted seeds in the decoded form.
type SeedNormalizer interface {
	NormalizeSeed(Seed) (Seed, error)
}

type Option func(*Network)

func WithDelivery(mode DeliveryMode) Option {
	return func(nw *Network) { nw.delivery = mode }
}

// WithMaxSteps sets the Drain bound; zero or less means unbounded.
func WithMaxSteps(steps int) Option {
	return func(nw *Network) { nw.maxSteps = steps }
}

func WithClock(clock func() time.Time) Option {
	return func(nw *Network) { nw.clock = clock }
}

func WithTracer(tracer Tracer) Option {
	return func(nw *Network) { nw.tracer = tracer }
}

// WithName sets the label this network reports its queue depth under.
func WithName(name string) Option {
	return func(nw *Network) {
		if name = strings.TrimSpace(name); name != "" {
			nw.name = name
		}
	}
}

func WithCodec(codec Codec) Option {
	return func(nw *Network) { nw.codec = codec }
}

type envelope struct {
	msg   Message
	frame []byte
}

// Network owns the node registry and the delivery queue.
type Network struct {
	mu       sync.Mutex
	nodes    map[string]*Node
	queue    []envelope
	draining bool

	name     string
	delivery DeliveryMode
	maxSteps int
	clock    func() time.Time
	tracer   Tracer
	codec    Codec
}

func NewNetwork(opts ...Option) *Network {
	nw := &Network{
		nodes:    make(map[string]*Node),
		queue:    make([]envelope, 0),
		name:     DefaultNetworkName,
		delivery: DeliveryQueued,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(nw)
	}
	return nw
}

func (nw *Network) Name() string {
	return nw.name
}

func (nw *Network) Delivery() DeliveryMode {
	return nw.delivery
}

// AddNode registers node under its id. A node already holding that id is
// replaced and loses its ability to send.
func (nw *Network) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	nw.mu.Lock()
	prev, exists := nw.nodes[node.id]
	nw.nodes[node.id] = node
	nw.mu.Unlock()

	if exists && prev != node {
		log.Warn().Str("node", node.id).Msg("node id re-registered, previous node detached")
		prev.detach()
	}
	var normalize normalizeFunc
	if n, ok := nw.codec.(SeedNormalizer); ok {
		normalize = n.NormalizeSeed
	}
	node.attach(nw.submit, normalize, nw.tracer, nw.clock)
	log.Debug().Str("node", node.id).Str("role", string(node.role)).Msg("node registered")
	return nil
}

func (nw *Network) GetNode(id string) (*Node, bool) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	node, ok := nw.nodes[id]
	return node, ok
}

// NodeIDs returns registered ids in sorted order.
func (nw *Network) NodeIDs() []string {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	ids := make([]string, 0, len(nw.nodes))
	for id := range nw.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SeedCount sums stored seeds across every registered node.
func (nw *Network) SeedCount() int {
	total := 0
	for _, id := range nw.NodeIDs() {
		if node, ok := nw.GetNode(id); ok {
			total += node.SeedCount()
		}
	}
	return total
}

// Route delivers msg to its destination synchronously. Unknown destinations
// and handler failures are logged; nothing is returned to the sender.
func (nw *Network) Route(msg Message) bool {
	node, ok := nw.GetNode(msg.Destination)
	if !ok {
		emit(nw.tracer, TraceEvent{
			Kind:        TraceDropped,
			Type:        msg.Type,
			Source:      msg.Source,
			Destination: msg.Destination,
			Reason:      ErrUnknownDestination.Error(),
		})
		return false
	}
	if err := node.Receive(msg); err != nil {
		log.Warn().
			Err(err).
			Str("node", node.id).
			Str("type", msg.Type.String()).
			Str("source", msg.Source).
			Msg("receive failed")
	}
	return true
}

func (nw *Network) Pending() int {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return len(nw.queue)
}

// Pump processes exactly one queued message. It reports false when the queue is empty.
func (nw *Network) Pump() bool {
	nw.mu.Lock()
	if len(nw.queue) == 0 {
		nw.mu.Unlock()
		return false
	}
	env := nw.queue[0]
	nw.queue[0] = envelope{}
	nw.queue = nw.queue[1:]
	depth := len(nw.queue)
	nw.mu.Unlock()
	observability.SetQueueDepth(nw.name, depth)

	msg := env.msg
	if env.frame != nil {
		decoded, err := nw.codec.Decode(env.frame)
		if err != nil {
			emit(nw.tracer, TraceEvent{
				Kind:        TraceDropped,
				Type:        msg.Type,
				Source:      msg.Source,
				Destination: msg.Destination,
				Reason:      fmt.Sprintf("decode: %v", err),
			})
			return true
		}
		msg = decoded
	}
	nw.Route(msg)
	return true
}

// Drain pumps until the queue is empty or the step bound is hit.
// A Drain already in progress makes nested calls return immediately.
func (nw *Network) Drain() (int, error) {
	nw.mu.Lock()
	if nw.draining {
		nw.mu.Unlock()
		return 0, nil
	}
	nw.draining = true
	nw.mu.Unlock()
	defer func() {
		nw.mu.Lock()
		nw.draining = false
		nw.mu.Unlock()
	}()

	steps := 0
	for {
		if nw.maxSteps > 0 && steps >= nw.maxSteps {
			if pending := nw.Pending(); pending > 0 {
				log.Warn().Int("steps", steps).Int("pending", pending).Msg("drain stopped at step limit")
				return steps, fmt.Errorf("%w: %d steps, %d pending", ErrStepLimit, steps, pending)
			}
			return steps, nil
		}
		if !nw.Pump() {
			return steps, nil
		}
		steps++
	}
}

func (nw *Network) submit(msg Message) error {
	env := envelope{msg: msg}
	if nw.codec != nil {
		frame, err := nw.codec.Encode(msg)
		if err != nil {
			emit(nw.tracer, TraceEvent{
				Kind:        TraceDropped,
				Type:        msg.Type,
				Source:      msg.Source,
				Destination: msg.Destination,
				Reason:      fmt.Sprintf("encode: %v", err),
			})
			return nil
		}
		env.frame = frame
	}

	nw.mu.Lock()
	nw.queue = append(nw.queue, env)
	depth := len(nw.queue)
	drainNow := nw.delivery == DeliveryImmediate && !nw.draining
	nw.mu.Unlock()
	observability.SetQueueDepth(nw.name, depth)

	if drainNow {
		_, err := nw.Drain()
		return err
	}
	return nil
}

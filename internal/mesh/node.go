package mesh

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Role is a policy flag. Gateways and leaves behave the same today.
type Role string

const (
	RoleGateway Role = "gateway"
	RoleLeaf    Role = "leaf"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleGateway:
		return RoleGateway, nil
	case RoleLeaf, "":
		return RoleLeaf, nil
	default:
		return "", fmt.Errorf("mesh: unknown role %q", raw)
	}
}

// deliverFunc is the only capability a registered node holds on its network.
type deliverFunc func(Message) error

// normalizeFunc rewrites a seed into the form it takes after crossing the wire.
type normalizeFunc func(Seed) (Seed, error)

// Node is an addressable participant with a seed store and outgoing links.
type Node struct {
	id   string
	role Role

	mu        sync.RWMutex
	neighbors []*Node
	seeds     map[string]Seed
	deliver   deliverFunc
	normalize normalizeFunc
	tracer    Tracer
	clock     func() time.Time

	broadcasting atomic.Bool
}

func NewNode(id string, role Role) (*Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if role == "" {
		role = RoleLeaf
	}
	return &Node{
		id:        id,
		role:      role,
		neighbors: make([]*Node, 0),
		seeds:     make(map[string]Seed),
	}, nil
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) Role() Role {
	return n.role
}

// Connect adds an outgoing link to peer. The reverse link is not added.
func (n *Node) Connect(peer *Node) {
	if peer == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if slices.Contains(n.neighbors, peer) {
		return
	}
	n.neighbors = append(n.neighbors, peer)
}

// Neighbors returns outgoing link ids in connection order.
func (n *Node) Neighbors() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.neighbors))
	for _, peer := range n.neighbors {
		out = append(out, peer.id)
	}
	return out
}

func (n *Node) Attached() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.deliver != nil
}

func (n *Node) attach(deliver deliverFunc, normalize normalizeFunc, tracer Tracer, clock func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver = deliver
	n.normalize = normalize
	n.tracer = tracer
	n.clock = clock
	if normalize == nil {
		return
	}
	for id, seed := range n.seeds {
		wire, err := normalize(seed)
		if err != nil {
			log.Warn().Err(err).Str("node", n.id).Str("seed_id", id).Msg("seed kept in local form")
			continue
		}
		n.seeds[id] = wire
	}
}

func (n *Node) detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver = nil
	n.normalize = nil
}

// Send hands msg to the network this node is registered with.
func (n *Node) Send(msg Message) error {
	n.mu.RLock()
	deliver := n.deliver
	tracer := n.tracer
	n.mu.RUnlock()

	if deliver == nil {
		log.Warn().Str("node", n.id).Str("type", msg.Type.String()).Msg("send on detached node")
		return fmt.Errorf("%w: %s", ErrNotAttached, n.id)
	}
	emit(tracer, TraceEvent{
		Kind:        TraceSent,
		Node:        n.id,
		Type:        msg.Type,
		Source:      msg.Source,
		Destination: msg.Destination,
	})
	return deliver(msg)
}

// Receive handles one message. Replies are sent through the network.
func (n *Node) Receive(msg Message) error {
	n.trace(TraceEvent{Kind: TraceReceived, Type: msg.Type, Source: msg.Source, Destination: msg.Destination})

	var err error
	switch msg.Type {
	case SeedRequest:
		err = n.handleSeedRequest(msg)
	case SeedData:
		err = n.handleSeedData(msg)
	case NetworkPing:
		err = n.handlePing(msg)
	case SeedResponse, NetworkPong:
		// terminal: receipt is the whole effect
		return nil
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownMessageType, uint8(msg.Type))
	}
	if err != nil && !errors.Is(err, ErrNotAttached) {
		n.trace(TraceEvent{
			Kind:        TraceRejected,
			Type:        msg.Type,
			Source:      msg.Source,
			Destination: msg.Destination,
			Reason:      err.Error(),
		})
	}
	return err
}

func (n *Node) handleSeedRequest(msg Message) error {
	seedID, err := requireString(msg, KeySeedID)
	if err != nil {
		return err
	}
	seed, ok := n.Seed(seedID)
	if !ok {
		// no negative acknowledgement exists; the requester just never hears back
		n.trace(TraceEvent{
			Kind:        TraceDropped,
			Type:        msg.Type,
			Source:      msg.Source,
			Destination: msg.Destination,
			SeedID:      seedID,
			Reason:      ErrSeedNotFound.Error(),
		})
		return nil
	}
	reply, err := NewMessage(SeedData, n.id, msg.Source, SeedDataPayload(seedID, seed), Timestamp(n.now()))
	if err != nil {
		return &PayloadError{Type: msg.Type, Key: "source", Reason: err.Error()}
	}
	return n.Send(reply)
}

func (n *Node) handleSeedData(msg Message) error {
	seedID, err := requireString(msg, KeySeedID)
	if err != nil {
		return err
	}
	seed, err := requireSeed(msg, KeySeedData)
	if err != nil {
		return err
	}
	n.putSeed(seedID, seed)
	return nil
}

func (n *Node) handlePing(msg Message) error {
	ts, ok := msg.Payload[KeyTimestamp]
	if !ok || ts == nil {
		ts = Timestamp(n.now())
	}
	pong, err := NewMessage(NetworkPong, n.id, msg.Source, Payload{KeyTimestamp: ts}, Timestamp(n.now()))
	if err != nil {
		return &PayloadError{Type: msg.Type, Key: "source", Reason: err.Error()}
	}
	return n.Send(pong)
}

// Broadcast calls Receive on every outgoing neighbour, bypassing routing.
// Fan-out is unbounded; a broadcast that loops back into a node that is still
// broadcasting fails with ErrBroadcastLoop rather than recursing.
func (n *Node) Broadcast(msg Message) error {
	if !n.broadcasting.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrBroadcastLoop, n.id)
	}
	defer n.broadcasting.Store(false)

	n.mu.RLock()
	peers := slices.Clone(n.neighbors)
	n.mu.RUnlock()

	var errs []error
	for _, peer := range peers {
		n.trace(TraceEvent{Kind: TraceBroadcast, Type: msg.Type, Source: msg.Source, Destination: peer.id})
		if err := peer.Receive(msg); err != nil {
			errs = append(errs, fmt.Errorf("broadcast %s->%s: %w", n.id, peer.id, err))
		}
	}
	return errors.Join(errs...)
}

// StoreSeed plants data locally without touching the network. Last write wins.
// On a network that encodes messages, data is stored in its wire form so a
// forwarded copy equals the original.
func (n *Node) StoreSeed(id string, data Seed) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptySeedID
	}
	n.mu.RLock()
	normalize := n.normalize
	n.mu.RUnlock()
	if normalize != nil {
		wire, err := normalize(data)
		if err != nil {
			return fmt.Errorf("store seed %s: %w", id, err)
		}
		data = wire
	}
	n.putSeed(id, data)
	return nil
}

func (n *Node) putSeed(id string, data Seed) {
	n.mu.Lock()
	n.seeds[id] = maps.Clone(data)
	n.mu.Unlock()
	n.trace(TraceEvent{Kind: TraceStored, SeedID: id})
}

// Seed returns a copy of the stored record for id.
func (n *Node) Seed(id string) (Seed, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	seed, ok := n.seeds[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(seed), true
}

func (n *Node) SeedIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.seeds))
	for id := range n.seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (n *Node) SeedCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.seeds)
}

func (n *Node) now() time.Time {
	n.mu.RLock()
	clock := n.clock
	n.mu.RUnlock()
	if clock == nil {
		return time.Now()
	}
	return clock()
}

func (n *Node) trace(ev TraceEvent) {
	n.mu.RLock()
	tracer := n.tracer
	n.mu.RUnlock()
	ev.Node = n.id
	emit(tracer, ev)
}

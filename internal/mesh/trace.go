package mesh

import (
	"sync"

	"github.com/danmuck/seedbank/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type TraceKind string

const (
	TraceSent      TraceKind = "sent"
	TraceBroadcast TraceKind = "broadcast"
	TraceReceived  TraceKind = "received"
	TraceDropped   TraceKind = "dropped"
	TraceRejected  TraceKind = "rejected"
	TraceStored    TraceKind = "stored"
)

// TraceEvent is one observable step of message handling.
// Node is empty for events raised by the network itself.
type TraceEvent struct {
	Kind        TraceKind
	Node        string
	Type        MessageType
	Source      string
	Destination string
	SeedID      string
	Reason      string
}

type Tracer interface {
	Trace(TraceEvent)
}

type TraceFunc func(TraceEvent)

func (f TraceFunc) Trace(ev TraceEvent) {
	f(ev)
}

// TraceLog records events in arrival order.
type TraceLog struct {
	mu     sync.Mutex
	events []TraceEvent
}

func NewTraceLog() *TraceLog {
	return &TraceLog{events: make([]TraceEvent, 0)}
}

func (l *TraceLog) Trace(ev TraceEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *TraceLog) Events() []TraceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TraceEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Filter returns the recorded events of kind, in order.
func (l *TraceLog) Filter(kind TraceKind) []TraceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TraceEvent, 0)
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (l *TraceLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = l.events[:0]
}

func emit(tracer Tracer, ev TraceEvent) {
	logTrace(ev)
	recordTrace(ev)
	if tracer != nil {
		tracer.Trace(ev)
	}
}

func logTrace(ev TraceEvent) {
	var event *zerolog.Event
	switch ev.Kind {
	case TraceDropped, TraceRejected:
		event = log.Warn()
	case TraceStored:
		event = log.Info()
	default:
		event = log.Debug()
	}
	event = event.
		Str("kind", string(ev.Kind)).
		Str("node", metricNode(ev))
	if ev.Type.Valid() {
		event = event.
			Str("type", ev.Type.String()).
			Str("source", ev.Source).
			Str("destination", ev.Destination)
	}
	if ev.SeedID != "" {
		event = event.Str("seed_id", ev.SeedID)
	}
	if ev.Reason != "" {
		event = event.Str("reason", ev.Reason)
	}
	event.Msg("mesh trace")
}

func recordTrace(ev TraceEvent) {
	node := metricNode(ev)
	switch ev.Kind {
	case TraceSent, TraceBroadcast:
		observability.RecordMessage(node, ev.Type.String(), observability.OutcomeSent)
	case TraceReceived:
		observability.RecordMessage(node, ev.Type.String(), observability.OutcomeDelivered)
	case TraceDropped:
		observability.RecordMessage(node, ev.Type.String(), observability.OutcomeDropped)
	case TraceRejected:
		observability.RecordMessage(node, ev.Type.String(), observability.OutcomeRejected)
	case TraceStored:
		observability.RecordSeedStored(node)
	}
}

func metricNode(ev TraceEvent) string {
	if ev.Node == "" {
		return "network"
	}
	return ev.Node
}

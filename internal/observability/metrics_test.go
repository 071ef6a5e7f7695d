package observability

import (
	"testing"
	"time"

	"github.com/danmuck/seedbank/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("gateway", "GET", "/api/seeds", 200, 12*time.Millisecond)
	RecordSeedStored("gateway")
	SetQueueDepth("default", 3)

	testlog.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestRecordMessageCountsByOutcome(t *testing.T) {
	testlog.Start(t)
	counter := meshMessages.WithLabelValues("school9", "seed_request", OutcomeDropped)
	before := testutil.ToFloat64(counter)

	RecordMessage("school9", "seed_request", OutcomeDropped)
	RecordMessage("school9", "seed_request", OutcomeDropped)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 dropped increments, got %v", got)
	}
}

func TestQueueDepthIsTrackedPerNetwork(t *testing.T) {
	testlog.Start(t)
	SetQueueDepth("simulation", 4)
	SetQueueDepth("server", 1)

	if got := testutil.ToFloat64(meshQueueDepth.WithLabelValues("simulation")); got != 4 {
		t.Fatalf("simulation depth overwritten: got %v want 4", got)
	}
	if got := testutil.ToFloat64(meshQueueDepth.WithLabelValues("server")); got != 1 {
		t.Fatalf("server depth: got %v want 1", got)
	}
}

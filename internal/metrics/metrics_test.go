package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReplayRecordsIncrements(t *testing.T) {
	before := testutil.ToFloat64(ReplayRecords("orderbook", "ok"))
	ReplayRecords("orderbook", "ok").Inc()
	after := testutil.ToFloat64(ReplayRecords("orderbook", "ok"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestOrchestratorCommandsIncrements(t *testing.T) {
	before := testutil.ToFloat64(OrchestratorCommands("trade", "ok"))
	OrchestratorCommands("trade", "ok").Inc()
	after := testutil.ToFloat64(OrchestratorCommands("trade", "ok"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestPathResolverLookupsIncrements(t *testing.T) {
	before := testutil.ToFloat64(PathResolverLookups("found"))
	PathResolverLookups("found").Inc()
	after := testutil.ToFloat64(PathResolverLookups("found"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

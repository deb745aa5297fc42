package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordToolExecution(t *testing.T) {
	m := NewMetrics("agentcore_test")

	m.RecordToolExecution("energy_calculator", true, true, 100*time.Millisecond)
	m.RecordToolExecution("energy_calculator", false, false, 50*time.Millisecond)

	if got := testutil.ToFloat64(m.ToolExecutions.WithLabelValues("energy_calculator", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolExecutions.WithLabelValues("energy_calculator", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolParallelReads); got != 1 {
		t.Errorf("parallel reads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolSerialWrites); got != 1 {
		t.Errorf("serial writes = %v, want 1", got)
	}
}

func TestMetrics_RecordSandboxExecution(t *testing.T) {
	m := NewMetrics("agentcore_test")

	m.RecordSandboxExecution("landlock", false, 10*time.Millisecond)
	m.RecordSandboxExecution("landlock", true, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.SandboxDenials.WithLabelValues("landlock")); got != 1 {
		t.Errorf("denial count = %v, want 1", got)
	}
}

func TestMetrics_RecordCompactionAndRenderGate(t *testing.T) {
	m := NewMetrics("agentcore_test")

	m.RecordCompaction(false, 8)
	if got := testutil.ToFloat64(m.Compactions); got != 1 {
		t.Errorf("compactions = %v, want 1", got)
	}

	m.RecordRenderGateScan([]string{"material_property", "literature"}, []string{"UNPROVENANCED_MATERIAL_PROPERTY"})
	if got := testutil.ToFloat64(m.RenderGateScans); got != 1 {
		t.Errorf("scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RenderGateViolations.WithLabelValues("UNPROVENANCED_MATERIAL_PROPERTY")); got != 1 {
		t.Errorf("violations = %v, want 1", got)
	}
}

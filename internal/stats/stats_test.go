package stats

import (
	"testing"

	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

func newTestBlock(t *testing.T, workers int) *Block {
	t.Helper()
	shm.Dir = t.TempDir()
	region, err := shm.Create("test_stats", Size(workers))
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() { region.Close() })
	return New(region, workers, true)
}

func TestSlotStateRoundTrip(t *testing.T) {
	block := newTestBlock(t, 4)
	slot := block.Slot(2)

	if GetState(slot) != StateDead {
		t.Fatalf("expected initial state DEAD, got %s", GetState(slot))
	}
	SetState(slot, StateIdle)
	if GetState(slot) != StateIdle {
		t.Fatalf("expected IDLE after SetState, got %s", GetState(slot))
	}
}

func TestLastErrorTruncation(t *testing.T) {
	block := newTestBlock(t, 1)
	slot := block.Slot(0)

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	RecordError(slot, string(long))

	got := Error(slot)
	if len(got) != lastErrorSize {
		t.Fatalf("expected truncation to %d bytes, got %d", lastErrorSize, len(got))
	}
}

func TestIndependentSlots(t *testing.T) {
	block := newTestBlock(t, 3)
	IncRequests(block.Slot(0))
	IncRequests(block.Slot(0))
	IncRequests(block.Slot(1))

	if block.Slot(0).RequestsHandled != 2 {
		t.Fatalf("slot 0 = %d, want 2", block.Slot(0).RequestsHandled)
	}
	if block.Slot(1).RequestsHandled != 1 {
		t.Fatalf("slot 1 = %d, want 1", block.Slot(1).RequestsHandled)
	}
	if block.Slot(2).RequestsHandled != 0 {
		t.Fatalf("slot 2 = %d, want 0", block.Slot(2).RequestsHandled)
	}
}

func TestFailedCountIndependentOfHandled(t *testing.T) {
	block := newTestBlock(t, 1)
	slot := block.Slot(0)

	IncRequests(slot)
	IncFailed(slot)
	IncFailed(slot)

	if slot.RequestsHandled != 1 {
		t.Fatalf("handled = %d, want 1", slot.RequestsHandled)
	}
	if slot.RequestsFailed != 2 {
		t.Fatalf("failed = %d, want 2", slot.RequestsFailed)
	}
}

func TestActiveConnectionsIncDec(t *testing.T) {
	block := newTestBlock(t, 1)
	g := block.Global()

	IncActiveConnections(g)
	IncActiveConnections(g)
	if g.ActiveConnections != 2 {
		t.Fatalf("active = %d, want 2", g.ActiveConnections)
	}
	DecActiveConnections(g)
	if g.ActiveConnections != 1 {
		t.Fatalf("active = %d, want 1", g.ActiveConnections)
	}
}

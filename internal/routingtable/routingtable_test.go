package routingtable

import (
	"sync"
	"testing"

	"kaleidoscope/internal/domain"
)

func nid(seed string) domain.NodeID { return domain.NewNodeID(seed) }

func TestNew_IsEmpty(t *testing.T) {
	rt := New()
	if !rt.IsEmpty() || rt.Size() != 0 {
		t.Fatalf("expected empty table, got size %d", rt.Size())
	}
}

func TestAddNeighbor_FirstIsSelfLoop(t *testing.T) {
	rt := New()
	a := nid("a")
	rt.AddNeighbor(a)

	if rt.Size() != 1 {
		t.Fatalf("expected size 1, got %d", rt.Size())
	}
	next, ok := rt.GetNextHop(a)
	if !ok || next != a {
		t.Fatalf("expected self-loop for sole neighbor, got %v, %v", next, ok)
	}
}

func TestAddNeighbor_ZeroIDIsNoop(t *testing.T) {
	rt := New()
	rt.AddNeighbor(domain.NodeID{})
	if !rt.IsEmpty() {
		t.Fatalf("expected zero NodeID to be a no-op")
	}
}

func TestAddNeighbor_DuplicateIsNoop(t *testing.T) {
	rt := New()
	a, b := nid("a"), nid("b")
	rt.AddNeighbor(a)
	rt.AddNeighbor(b)
	before := rt.Snapshot()
	rt.AddNeighbor(a)
	after := rt.Snapshot()
	if !before.Equal(after) {
		t.Fatalf("expected re-adding an existing neighbor to be a no-op")
	}
}

func TestAddNeighbor_FormsValidCycle(t *testing.T) {
	rt := New()
	ids := []domain.NodeID{nid("a"), nid("b"), nid("c"), nid("d"), nid("e")}
	for _, id := range ids {
		rt.AddNeighbor(id)
	}
	snap := rt.Snapshot()
	if err := ValidateSnapshot(snap); err != nil {
		t.Fatalf("expected a valid snapshot, got %v", err)
	}
	if rt.Size() != len(ids) {
		t.Fatalf("expected size %d, got %d", len(ids), rt.Size())
	}
	for _, id := range ids {
		if !rt.Contains(id) {
			t.Fatalf("expected table to contain %v", id)
		}
	}
}

func TestAddNeighbors_BulkSpliceFormsValidCycle(t *testing.T) {
	rt := New()
	rt.AddNeighbor(nid("seed1"))
	rt.AddNeighbor(nid("seed2"))

	batch := []domain.NodeID{nid("x1"), nid("x2"), nid("x3"), nid("x4")}
	rt.AddNeighbors(batch)

	snap := rt.Snapshot()
	if err := ValidateSnapshot(snap); err != nil {
		t.Fatalf("expected a valid snapshot after bulk add, got %v", err)
	}
	if rt.Size() != 6 {
		t.Fatalf("expected size 6, got %d", rt.Size())
	}
}

func TestAddNeighbors_FromEmptyFormsValidCycle(t *testing.T) {
	rt := New()
	batch := []domain.NodeID{nid("x1"), nid("x2"), nid("x3")}
	rt.AddNeighbors(batch)

	snap := rt.Snapshot()
	if err := ValidateSnapshot(snap); err != nil {
		t.Fatalf("expected a valid snapshot, got %v", err)
	}
	if rt.Size() != 3 {
		t.Fatalf("expected size 3, got %d", rt.Size())
	}
}

func TestAddNeighbors_SkipsDuplicatesAndZero(t *testing.T) {
	rt := New()
	a := nid("a")
	rt.AddNeighbor(a)
	rt.AddNeighbors([]domain.NodeID{a, domain.NodeID{}, nid("b"), nid("b")})
	if rt.Size() != 2 {
		t.Fatalf("expected size 2, got %d", rt.Size())
	}
}

func TestRemoveNeighbor_LastLeavesEmpty(t *testing.T) {
	rt := New()
	a := nid("a")
	rt.AddNeighbor(a)
	rt.RemoveNeighbor(a)
	if !rt.IsEmpty() {
		t.Fatalf("expected table to be empty after removing sole neighbor")
	}
	if rt.Contains(a) {
		t.Fatalf("expected removed neighbor to be absent")
	}
}

func TestRemoveNeighbor_AbsentIsNoop(t *testing.T) {
	rt := New()
	rt.AddNeighbor(nid("a"))
	before := rt.Snapshot()
	rt.RemoveNeighbor(nid("nonexistent"))
	after := rt.Snapshot()
	if !before.Equal(after) {
		t.Fatalf("expected removing an absent neighbor to be a no-op")
	}
}

func TestRemoveNeighbor_StitchesCycle(t *testing.T) {
	rt := New()
	ids := []domain.NodeID{nid("a"), nid("b"), nid("c"), nid("d"), nid("e")}
	for _, id := range ids {
		rt.AddNeighbor(id)
	}
	rt.RemoveNeighbor(ids[2])

	snap := rt.Snapshot()
	if err := ValidateSnapshot(snap); err != nil {
		t.Fatalf("expected a valid snapshot after remove, got %v", err)
	}
	if rt.Size() != 4 {
		t.Fatalf("expected size 4, got %d", rt.Size())
	}
	if rt.Contains(ids[2]) {
		t.Fatalf("expected removed neighbor to be absent")
	}
}

func TestRemoveNeighbors_RemovesEachInTurn(t *testing.T) {
	rt := New()
	ids := []domain.NodeID{nid("a"), nid("b"), nid("c"), nid("d")}
	for _, id := range ids {
		rt.AddNeighbor(id)
	}
	rt.RemoveNeighbors(ids[:3])
	if rt.Size() != 1 {
		t.Fatalf("expected size 1, got %d", rt.Size())
	}
	if !rt.Contains(ids[3]) {
		t.Fatalf("expected last remaining neighbor to still be present")
	}
}

func TestClear(t *testing.T) {
	rt := New()
	rt.AddNeighbor(nid("a"))
	rt.AddNeighbor(nid("b"))
	rt.Clear()
	if !rt.IsEmpty() || len(rt.GetOrderedNeighbors()) != 0 {
		t.Fatalf("expected Clear to empty the table")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rt := New()
	for _, id := range []domain.NodeID{nid("a"), nid("b"), nid("c")} {
		rt.AddNeighbor(id)
	}
	snap := rt.Snapshot()

	rt2, err := NewFromSnapshot(snap)
	if err != nil {
		t.Fatalf("expected valid snapshot to round-trip, got %v", err)
	}
	if !rt2.Snapshot().Equal(snap) {
		t.Fatalf("expected round-tripped table to reproduce the snapshot")
	}
}

func TestNewFromSnapshot_RejectsSelfRouteWithMultipleNeighbors(t *testing.T) {
	a, b := nid("a"), nid("b")
	bad := Snapshot{
		Routes:           map[domain.NodeID]domain.NodeID{a: a, b: b},
		OrderedNeighbors: []domain.NodeID{a, b},
	}
	_, err := NewFromSnapshot(bad)
	var invalid *InvalidSnapshotError
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !asInvalidSnapshotError(err, &invalid) || invalid.Reason != ReasonIllegalSelfRoute {
		t.Fatalf("expected illegal self-route, got %v", err)
	}
}

func TestNewFromSnapshot_RejectsDisjointCycles(t *testing.T) {
	ids := make([]domain.NodeID, 10)
	for i := range ids {
		ids[i] = nid(string(rune('a' + i)))
	}
	routes := map[domain.NodeID]domain.NodeID{}
	for i := 0; i < 5; i++ {
		routes[ids[i]] = ids[(i+1)%5]
	}
	for i := 5; i < 10; i++ {
		routes[ids[i]] = ids[5+(i+1-5)%5]
	}
	bad := Snapshot{Routes: routes, OrderedNeighbors: ids}

	_, err := NewFromSnapshot(bad)
	var invalid *InvalidSnapshotError
	if err == nil || !asInvalidSnapshotError(err, &invalid) || invalid.Reason != ReasonCycleTooShort {
		t.Fatalf("expected cycle too short, got %v", err)
	}
}

func asInvalidSnapshotError(err error, target **InvalidSnapshotError) bool {
	e, ok := err.(*InvalidSnapshotError)
	if ok {
		*target = e
	}
	return ok
}

func TestConcurrentReadsDuringMutation(t *testing.T) {
	rt := New()
	for i := 0; i < 20; i++ {
		rt.AddNeighbor(nid(string(rune('a' + i))))
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := nid(string(rune('a' + i)))
			for {
				select {
				case <-stop:
					return
				default:
					if _, ok := rt.GetNextHop(id); !ok {
						t.Errorf("expected existing neighbor %v to always resolve", id)
						return
					}
				}
			}
		}(i)
	}

	for i := 20; i < 30; i++ {
		rt.AddNeighbor(nid(string(rune('a' + i))))
	}
	close(stop)
	wg.Wait()
}

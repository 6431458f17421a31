// Package routingtable implements the Random Routing Table (RRT): the
// per-node structure that pairs each neighbor with exactly one successor
// in a single Hamiltonian cycle over all neighbors, and a separately
// shuffled neighbor order used only to pick advertising seeds. See the
// RoutingTable type docs for the concurrency contract.
package routingtable

import (
	"sync"
	"sync/atomic"

	"kaleidoscope/internal/domain"
	"kaleidoscope/internal/logger"
)

// RoutingTable is a Random Routing Table: a single Hamiltonian cycle
// over a node's neighbor set. It owns its
// storage exclusively; Snapshot()/NewFromSnapshot are the only ways data
// crosses its boundary.
//
// Concurrency: a single mutex (mu) serializes every mutator
// and is held during Snapshot() and during any read of orderedNeighbors.
// routes is a sync.Map so that GetNextHop/Contains can be read by an
// unlimited number of reader goroutines without taking mu; Size/IsEmpty
// read the atomic size counter, also without taking mu.
type RoutingTable struct {
	logger logger.Logger

	mu               sync.Mutex
	routes           sync.Map // domain.NodeID -> domain.NodeID, lock-free reads
	orderedNeighbors []domain.NodeID

	// size mirrors len(routes) for the lock-free Size()/IsEmpty() reads.
	// It may briefly over-count mid-add but is only
	// decremented once a remove has fully committed.
	size atomic.Int64
}

// New creates an empty RoutingTable (N = ∅).
func New(opts ...Option) *RoutingTable {
	rt := &RoutingTable{
		logger: &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// NewFromSnapshot creates a RoutingTable matching snapshot. It validates
// the snapshot first and returns an *InvalidSnapshotError if it violates
// the bijection, single-cycle, and ordering invariants checked by
// ValidateSnapshot.
func NewFromSnapshot(snapshot Snapshot, opts ...Option) (*RoutingTable, error) {
	if err := ValidateSnapshot(snapshot); err != nil {
		return nil, err
	}
	rt := New(opts...)
	for k, v := range snapshot.Routes {
		rt.routes.Store(k, v)
	}
	rt.orderedNeighbors = append([]domain.NodeID(nil), snapshot.OrderedNeighbors...)
	rt.size.Store(int64(len(snapshot.Routes)))
	return rt, nil
}

// Contains reports whether id is currently a member of N. Lock-free.
func (rt *RoutingTable) Contains(id domain.NodeID) bool {
	_, ok := rt.routes.Load(id)
	return ok
}

// Size returns |N|. Lock-free; see the field comment on size for its
// brief-over-count-on-add / never-under-count-on-remove guarantee.
func (rt *RoutingTable) Size() int {
	return int(rt.size.Load())
}

// IsEmpty reports whether N = ∅. Lock-free.
func (rt *RoutingTable) IsEmpty() bool {
	return rt.Size() == 0
}

// GetNextHop returns routes[priorId] and true if priorId is present, or
// the zero NodeID and false otherwise. Never blocks on mu and never
// panics.
func (rt *RoutingTable) GetNextHop(priorID domain.NodeID) (domain.NodeID, bool) {
	v, ok := rt.routes.Load(priorID)
	if !ok {
		return domain.NodeID{}, false
	}
	return v.(domain.NodeID), true
}

// GetNextHopForAdvertisement is equivalent to GetNextHop(ad.Sender).
func (rt *RoutingTable) GetNextHopForAdvertisement(ad domain.Advertisement) (domain.NodeID, bool) {
	return rt.GetNextHop(ad.Sender)
}

// GetOrderedNeighbors returns an independent copy of the shuffled
// neighbor order, stable between mutations.
func (rt *RoutingTable) GetOrderedNeighbors() []domain.NodeID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]domain.NodeID, len(rt.orderedNeighbors))
	copy(out, rt.orderedNeighbors)
	return out
}

// Snapshot atomically dumps the current state into an immutable value.
// Never reflects an interleaved mutation: mu is held for both mutators and
// Snapshot, so no mutator can run while a snapshot is in progress.
func (rt *RoutingTable) Snapshot() Snapshot {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	routes := make(map[domain.NodeID]domain.NodeID, len(rt.orderedNeighbors))
	rt.routes.Range(func(k, v any) bool {
		routes[k.(domain.NodeID)] = v.(domain.NodeID)
		return true
	})
	ordered := make([]domain.NodeID, len(rt.orderedNeighbors))
	copy(ordered, rt.orderedNeighbors)
	return Snapshot{Routes: routes, OrderedNeighbors: ordered}
}

// Clear empties the table; N becomes ∅.
func (rt *RoutingTable) Clear() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.routes.Range(func(k, _ any) bool {
		rt.routes.Delete(k)
		return true
	})
	rt.orderedNeighbors = nil
	rt.size.Store(0)
	rt.logger.Debug("routing table cleared")
}

// AddNeighbor adds v to N, preserving the bijection and cycle invariants. Idempotent if v is
// already present; the zero NodeID is treated as a null input and is a
// no-op. Disrupts at most one existing route.
func (rt *RoutingTable) AddNeighbor(v domain.NodeID) {
	if v.IsZero() {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.addLocked(v)
}

// addLocked performs the single-add algorithm. Caller
// must hold rt.mu.
func (rt *RoutingTable) addLocked(v domain.NodeID) {
	if _, exists := rt.routes.Load(v); exists {
		return
	}

	if len(rt.orderedNeighbors) == 0 {
		rt.size.Add(1)
		rt.routes.Store(v, v)
		rt.orderedNeighbors = []domain.NodeID{v}
		rt.logger.Debug("added first neighbor", logger.FNodeID("neighbor", v))
		return
	}

	x := rt.orderedNeighbors[randIntn(len(rt.orderedNeighbors))]
	yv, _ := rt.routes.Load(x)
	y := yv.(domain.NodeID)

	rt.size.Add(1) // may briefly over-count before the splice below lands

	rt.routes.Store(v, y) // v -> y installed before x's successor changes,
	rt.routes.Store(x, v) // so y is never momentarily unreachable

	rt.orderedNeighbors = insertAtRandomPosition(rt.orderedNeighbors, v)
	rt.logger.Debug("added neighbor",
		logger.FNodeID("neighbor", v),
		logger.FNodeID("splicedAfter", x),
		logger.FNodeID("successor", y),
	)
}

// AddNeighbors adds a batch of neighbors as one splice into the cycle, so
// that at most one pre-existing route is disrupted regardless of batch
// size. Idempotent on overlap; an empty or all-duplicate input is a no-op.
func (rt *RoutingTable) AddNeighbors(ids []domain.NodeID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var batch []domain.NodeID
	seen := make(map[domain.NodeID]struct{}, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, exists := rt.routes.Load(id); exists {
			continue
		}
		batch = append(batch, id)
	}

	switch len(batch) {
	case 0:
		return
	case 1:
		rt.addLocked(batch[0])
		return
	}

	b := shuffle(batch)
	k := len(b)

	if len(rt.orderedNeighbors) == 0 {
		rt.size.Add(int64(k))
		for i := 0; i < k; i++ {
			rt.routes.Store(b[i], b[(i+1)%k])
		}
	} else {
		x := rt.orderedNeighbors[randIntn(len(rt.orderedNeighbors))]
		yv, _ := rt.routes.Load(x)
		y := yv.(domain.NodeID)

		rt.size.Add(int64(k))

		for i := 0; i < k-1; i++ {
			rt.routes.Store(b[i], b[i+1])
		}
		rt.routes.Store(b[k-1], y) // bk -> y installed first
		rt.routes.Store(x, b[0])   // then x's successor is overwritten
	}

	for _, id := range b {
		rt.orderedNeighbors = insertAtRandomPosition(rt.orderedNeighbors, id)
	}
	rt.logger.Debug("bulk-added neighbors", logger.F("count", k))
}

// RemoveNeighbor removes v from N if present, preserving invariants
// the bijection and cycle invariants. No-op if v is absent.
func (rt *RoutingTable) RemoveNeighbor(v domain.NodeID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.removeLocked(v)
}

// removeLocked performs the remove algorithm. Caller must
// hold rt.mu.
func (rt *RoutingTable) removeLocked(v domain.NodeID) {
	successorVal, exists := rt.routes.Load(v)
	if !exists {
		return
	}

	// Remove from orderedNeighbors first so v can no longer be picked as
	// an advertiseSelf seed before the routing mutation below completes.
	for i, id := range rt.orderedNeighbors {
		if id == v {
			rt.orderedNeighbors = append(rt.orderedNeighbors[:i], rt.orderedNeighbors[i+1:]...)
			break
		}
	}

	successor := successorVal.(domain.NodeID)
	if successor == v {
		// |N| == 1: v routed to itself.
		rt.routes.Delete(v)
		rt.size.Add(-1)
		rt.logger.Debug("removed last neighbor", logger.FNodeID("neighbor", v))
		return
	}

	var predecessor domain.NodeID
	rt.routes.Range(func(k, val any) bool {
		if val.(domain.NodeID) == v {
			predecessor = k.(domain.NodeID)
			return false
		}
		return true
	})

	rt.routes.Store(predecessor, successor)
	rt.routes.Delete(v)
	rt.size.Add(-1) // decremented only once the stitch above has committed
	rt.logger.Debug("removed neighbor",
		logger.FNodeID("neighbor", v),
		logger.FNodeID("predecessor", predecessor),
		logger.FNodeID("successor", successor),
	)
}

// RemoveNeighbors removes each id in iteration order. Equivalent in final
// state to sequential single removes; not atomic as a whole, so readers
// may observe an intermediate state partway through the batch.
func (rt *RoutingTable) RemoveNeighbors(ids []domain.NodeID) {
	for _, id := range ids {
		rt.RemoveNeighbor(id)
	}
}

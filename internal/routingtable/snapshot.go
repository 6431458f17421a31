package routingtable

import "kaleidoscope/internal/domain"

// Snapshot is an immutable, validated dump of an RRT's state: the full
// successor map and the shuffled neighbor order used to seed
// advertiseSelf. It is a pure value — deep-copied out of some past valid
// state of a RoutingTable — and carries no reference back to the table
// that produced it.
type Snapshot struct {
	Routes           map[domain.NodeID]domain.NodeID
	OrderedNeighbors []domain.NodeID
}

// clone returns an independent deep copy of s.
func (s Snapshot) clone() Snapshot {
	routes := make(map[domain.NodeID]domain.NodeID, len(s.Routes))
	for k, v := range s.Routes {
		routes[k] = v
	}
	ordered := make([]domain.NodeID, len(s.OrderedNeighbors))
	copy(ordered, s.OrderedNeighbors)
	return Snapshot{Routes: routes, OrderedNeighbors: ordered}
}

// Equal reports whether s and other carry identical routes and identical
// ordered-neighbors (same order), used by the round-trip property test.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Routes) != len(other.Routes) {
		return false
	}
	for k, v := range s.Routes {
		if ov, ok := other.Routes[k]; !ok || ov != v {
			return false
		}
	}
	if len(s.OrderedNeighbors) != len(other.OrderedNeighbors) {
		return false
	}
	for i, id := range s.OrderedNeighbors {
		if other.OrderedNeighbors[i] != id {
			return false
		}
	}
	return true
}

// ValidateSnapshot declares a candidate Snapshot valid iff it satisfies
// the routing table's structural invariants, returning the first violation found as
// an *InvalidSnapshotError, or nil if the snapshot is valid.
func ValidateSnapshot(s Snapshot) error {
	routes := s.Routes

	// 1. routes must be a permutation of its key set: every value is
	// itself a key, and no two keys share a value (injective + total ->
	// bijective on a finite set of equal cardinality).
	seenValues := make(map[domain.NodeID]struct{}, len(routes))
	for _, v := range routes {
		if _, dup := seenValues[v]; dup {
			return invalidSnapshot(ReasonKeyValueMismatch)
		}
		seenValues[v] = struct{}{}
		if _, ok := routes[v]; !ok {
			return invalidSnapshot(ReasonKeyValueMismatch)
		}
	}

	// 2. For |N| > 1: no self-loop, and the routes form a single
	// Hamiltonian cycle.
	if len(routes) > 1 {
		for k, v := range routes {
			if k == v {
				return invalidSnapshot(ReasonIllegalSelfRoute)
			}
		}

		var start domain.NodeID
		for k := range routes {
			start = k
			break
		}

		visited := make(map[domain.NodeID]struct{}, len(routes))
		cur := start
		closed := false
		for i := 0; i <= len(routes); i++ {
			if i > 0 && cur == start {
				closed = true
				break
			}
			if _, seen := visited[cur]; seen {
				break
			}
			visited[cur] = struct{}{}
			cur = routes[cur]
		}
		if !closed {
			return invalidSnapshot(ReasonUnclosedCycle)
		}
		if len(visited) != len(routes) {
			return invalidSnapshot(ReasonCycleTooShort)
		}
	}

	// 3. orderedNeighbors is duplicate-free.
	seenOrdered := make(map[domain.NodeID]struct{}, len(s.OrderedNeighbors))
	for _, id := range s.OrderedNeighbors {
		if _, dup := seenOrdered[id]; dup {
			return invalidSnapshot(ReasonOrderedDuplicates)
		}
		seenOrdered[id] = struct{}{}
	}

	// 4. set(orderedNeighbors) == keys(routes).
	if len(seenOrdered) != len(routes) {
		return invalidSnapshot(ReasonOrderedMismatch)
	}
	for id := range seenOrdered {
		if _, ok := routes[id]; !ok {
			return invalidSnapshot(ReasonOrderedMismatch)
		}
	}

	return nil
}

// IsValidSnapshot is the total, boolean-returning companion to
// ValidateSnapshot for callers that want to avoid handling an error value.
func IsValidSnapshot(s Snapshot) bool {
	return ValidateSnapshot(s) == nil
}

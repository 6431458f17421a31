package engine

import (
	"context"
	"errors"
	"testing"

	"kaleidoscope/internal/domain"
)

type fakeTable struct {
	nextHop   map[domain.NodeID]domain.NodeID
	ordered   []domain.NodeID
}

func (f *fakeTable) GetNextHopForAdvertisement(ad domain.Advertisement) (domain.NodeID, bool) {
	v, ok := f.nextHop[ad.Sender]
	return v, ok
}

func (f *fakeTable) GetOrderedNeighbors() []domain.NodeID {
	out := make([]domain.NodeID, len(f.ordered))
	copy(out, f.ordered)
	return out
}

type recordingSink struct {
	calls []sendCall
	err   error
}

type sendCall struct {
	ad       domain.Advertisement
	neighbor domain.NodeID
	ttl      int
}

func (s *recordingSink) SendAdvertisement(ctx context.Context, message domain.Advertisement, neighbor domain.NodeID, ttl int) error {
	s.calls = append(s.calls, sendCall{ad: message, neighbor: neighbor, ttl: ttl})
	return s.err
}

func nid(seed string) domain.NodeID { return domain.NewNodeID(seed) }

func TestHandleAdvertisement_DropsLowTTL(t *testing.T) {
	self := nid("self")
	table := &fakeTable{nextHop: map[domain.NodeID]domain.NodeID{}}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	ad := domain.NewAdvertisement(nid("prev"), 1, nil)
	forwarded, err := e.HandleAdvertisement(context.Background(), ad, sink)
	if err != nil || forwarded {
		t.Fatalf("expected drop, got forwarded=%v err=%v", forwarded, err)
	}
	if len(sink.calls) != 0 {
		t.Fatalf("sink should not have been called")
	}
}

func TestHandleAdvertisement_DropsTTLAboveMax(t *testing.T) {
	self := nid("self")
	table := &fakeTable{nextHop: map[domain.NodeID]domain.NodeID{}}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	ad := domain.NewAdvertisement(nid("prev"), 21, nil)
	forwarded, err := e.HandleAdvertisement(context.Background(), ad, sink)
	if err != nil || forwarded {
		t.Fatalf("expected drop, got forwarded=%v err=%v", forwarded, err)
	}
}

func TestHandleAdvertisement_ForwardsWithDecrementedTTL(t *testing.T) {
	self := nid("self")
	prev := nid("prev")
	next := nid("next")
	table := &fakeTable{nextHop: map[domain.NodeID]domain.NodeID{prev: next}}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	ad := domain.NewAdvertisement(prev, 7, []byte("payload"))
	forwarded, err := e.HandleAdvertisement(context.Background(), ad, sink)
	if err != nil || !forwarded {
		t.Fatalf("expected forward, got forwarded=%v err=%v", forwarded, err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(sink.calls))
	}
	call := sink.calls[0]
	if call.neighbor != next {
		t.Fatalf("expected neighbor %v, got %v", next, call.neighbor)
	}
	if call.ttl != 6 || call.ad.InboundTTL != 6 {
		t.Fatalf("expected ttl 6, got call.ttl=%d ad.ttl=%d", call.ttl, call.ad.InboundTTL)
	}
	if call.ad.Sender != self {
		t.Fatalf("expected forwarded sender to be self, got %v", call.ad.Sender)
	}
}

func TestHandleAdvertisement_DropsWhenNoRoute(t *testing.T) {
	self := nid("self")
	table := &fakeTable{nextHop: map[domain.NodeID]domain.NodeID{}}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	ad := domain.NewAdvertisement(nid("stranger"), 10, nil)
	forwarded, err := e.HandleAdvertisement(context.Background(), ad, sink)
	if err != nil || forwarded {
		t.Fatalf("expected drop, got forwarded=%v err=%v", forwarded, err)
	}
}

func TestHandleAdvertisement_PropagatesSinkError(t *testing.T) {
	self := nid("self")
	prev := nid("prev")
	next := nid("next")
	table := &fakeTable{nextHop: map[domain.NodeID]domain.NodeID{prev: next}}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	wantErr := errors.New("boom")
	sink := &recordingSink{err: wantErr}

	ad := domain.NewAdvertisement(prev, 7, nil)
	_, err := e.HandleAdvertisement(context.Background(), ad, sink)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected sink error to propagate, got %v", err)
	}
}

func orderedSeeds(n int) []domain.NodeID {
	out := make([]domain.NodeID, n)
	for i := range out {
		out[i] = nid(string(rune('a' + i)))
	}
	return out
}

func TestAdvertiseSelf_CaseA_LowDegree(t *testing.T) {
	self := nid("self")
	neighbors := orderedSeeds(4)
	table := &fakeTable{ordered: neighbors}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	if err := e.AdvertiseSelf(context.Background(), domain.NewAdvertisement(domain.NodeID{}, 0, nil), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.calls) != 4 {
		t.Fatalf("expected 4 sends, got %d", len(sink.calls))
	}
	for _, call := range sink.calls {
		if call.ttl != 20 {
			t.Fatalf("expected ttl 20, got %d", call.ttl)
		}
	}
}

func TestAdvertiseSelf_CaseB_HighDegree(t *testing.T) {
	self := nid("self")
	neighbors := orderedSeeds(20)
	table := &fakeTable{ordered: neighbors}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	if err := e.AdvertiseSelf(context.Background(), domain.NewAdvertisement(domain.NodeID{}, 0, nil), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// routes = 100/7 = 14; rem = 100 - 14*7 = 2; two walks of length 8, twelve of length 7.
	if len(sink.calls) != 14 {
		t.Fatalf("expected 14 sends, got %d", len(sink.calls))
	}
	lenCount := map[int]int{}
	total := 0
	for i, call := range sink.calls {
		if call.neighbor != neighbors[i] {
			t.Fatalf("expected seed order to match first 14 ordered neighbors at %d", i)
		}
		lenCount[call.ttl]++
		total += call.ttl
	}
	if lenCount[8] != 2 || lenCount[7] != 12 {
		t.Fatalf("expected two walks of length 8 and twelve of length 7, got %v", lenCount)
	}
	if total != 100 {
		t.Fatalf("expected total reach 100, got %d", total)
	}
}

func TestAdvertiseSelf_CaseC_OneWalkPerNeighbor(t *testing.T) {
	self := nid("self")
	neighbors := orderedSeeds(10)
	table := &fakeTable{ordered: neighbors}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	if err := e.AdvertiseSelf(context.Background(), domain.NewAdvertisement(domain.NodeID{}, 0, nil), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.calls) != 10 {
		t.Fatalf("expected 10 sends, got %d", len(sink.calls))
	}
	total := 0
	for _, call := range sink.calls {
		if call.ttl < 7 || call.ttl > 20 {
			t.Fatalf("walk length %d outside [w_min, w_max]", call.ttl)
		}
		total += call.ttl
	}
	if total != 100 {
		t.Fatalf("expected total reach 100, got %d", total)
	}
}

func TestAdvertiseSelf_EmptyNeighborsIsNoop(t *testing.T) {
	self := nid("self")
	table := &fakeTable{}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})
	sink := &recordingSink{}

	if err := e.AdvertiseSelf(context.Background(), domain.NewAdvertisement(domain.NodeID{}, 0, nil), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Fatalf("expected no sends for empty neighbor set")
	}
}

func TestAdvertiseSelf_Repeatable(t *testing.T) {
	self := nid("self")
	neighbors := orderedSeeds(10)
	table := &fakeTable{ordered: neighbors}
	e := New(self, table, Params{IdealReach: 100, MinRouteLength: 7, MaxRouteLength: 20})

	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	ad := domain.NewAdvertisement(domain.NodeID{}, 0, nil)
	if err := e.AdvertiseSelf(context.Background(), ad, sinkA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AdvertiseSelf(context.Background(), ad, sinkB); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sinkA.calls) != len(sinkB.calls) {
		t.Fatalf("expected identical call counts")
	}
	for i := range sinkA.calls {
		if sinkA.calls[i].neighbor != sinkB.calls[i].neighbor || sinkA.calls[i].ttl != sinkB.calls[i].ttl {
			t.Fatalf("expected identical sequence of calls at index %d", i)
		}
	}
}

// Package engine implements the advertisement engine: the forwarding
// rule that decrements TTL along a route, and the advertiseSelf
// apportionment that plans how many walks to launch, their lengths, and
// which neighbors seed each one.
package engine

import (
	"context"

	"kaleidoscope/internal/domain"
	"kaleidoscope/internal/logger"
	"kaleidoscope/internal/telemetry/advertisementtrace"
)

// RoutingTable is the subset of *routingtable.RoutingTable the Engine
// actually calls, expressed as an interface so the Engine never depends
// on the concrete routing table type.
type RoutingTable interface {
	GetNextHopForAdvertisement(ad domain.Advertisement) (domain.NodeID, bool)
	GetOrderedNeighbors() []domain.NodeID
}

// Sink is the embedder-supplied transport for outgoing advertisements.
// Implementations must not block the caller for long; they must
// ultimately deliver message to neighbor's handleAdvertisement with
// message.Sender == self and message.InboundTTL == ttl, which CopyWith
// already guarantees when the Engine constructs message.
type Sink interface {
	SendAdvertisement(ctx context.Context, message domain.Advertisement, neighbor domain.NodeID, ttl int) error
}

// Params holds the three tunable advertisement parameters: idealReach r,
// minRouteLength w_min, maxRouteLength w_max. Constraint: w_max -
// w_min >= 1.
type Params struct {
	IdealReach     int
	MinRouteLength int
	MaxRouteLength int
}

// Engine plans outgoing self-advertisements and forwards incoming ones
// against a RoutingTable. It holds no mutable state of its own; all
// state lives in the RoutingTable it was given.
type Engine struct {
	self   domain.NodeID
	table  RoutingTable
	params Params
	logger logger.Logger
}

// Option customizes an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New builds an Engine for node self, driving table according to params.
func New(self domain.NodeID, table RoutingTable, params Params, opts ...Option) *Engine {
	e := &Engine{
		self:   self,
		table:  table,
		params: params,
		logger: &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleAdvertisement applies the forwarding rule to an inbound
// advertisement. It drops (returns false, nil) if inboundTTL <= 1
// or inboundTTL > w_max, or if sender has no next hop in the routing
// table. Otherwise it looks up next = getNextHop(sender), emits
// copyWith(self, ttl-1) via sink, and returns (true, nil), or (false, err)
// if the sink returned an error.
func (e *Engine) HandleAdvertisement(ctx context.Context, ad domain.Advertisement, sink Sink) (bool, error) {
	ctx, span := advertisementtrace.StartHandleAdvertisement(ctx, ad)
	defer span.End()

	t := ad.InboundTTL
	if t <= 1 || t > e.params.MaxRouteLength {
		advertisementtrace.RecordForward(span, false, domain.NodeID{}, "ttl out of range")
		e.logger.Debug("dropped advertisement",
			logger.FAdvertisement("advertisement", ad),
			logger.F("reason", "ttl out of range"),
		)
		return false, nil
	}

	next, ok := e.table.GetNextHopForAdvertisement(ad)
	if !ok {
		advertisementtrace.RecordForward(span, false, domain.NodeID{}, "no route for sender")
		e.logger.Debug("dropped advertisement",
			logger.FAdvertisement("advertisement", ad),
			logger.F("reason", "no route for sender"),
		)
		return false, nil
	}

	forwarded := ad.CopyWith(e.self, t-1)
	if err := sink.SendAdvertisement(ctx, forwarded, next, t-1); err != nil {
		return false, err
	}
	advertisementtrace.RecordForward(span, true, next, "")
	e.logger.Debug("forwarded advertisement",
		logger.FAdvertisement("advertisement", forwarded),
		logger.FNodeID("next", next),
	)
	return true, nil
}

// AdvertiseSelf plans and emits the self-advertisement walks for message,
// given the current ordered neighbor list. It
// classifies into case A (degree too low to reach r even at w_max),
// case B (degree high enough that only a subset of neighbors is needed),
// or case C (one walk per neighbor, distributing r among them), then
// calls sink.SendAdvertisement once per planned walk.
//
// The first sink error aborts remaining sends and is returned; walks
// already sent are not retried or rolled back.
func (e *Engine) AdvertiseSelf(ctx context.Context, message domain.Advertisement, sink Sink) error {
	ctx, span := advertisementtrace.StartAdvertiseSelf(ctx, e.self)
	defer span.End()

	neighbors := e.table.GetOrderedNeighbors()
	d := len(neighbors)
	if d == 0 {
		advertisementtrace.RecordPlan(span, 0)
		return nil
	}

	r := e.params.IdealReach
	wMin := e.params.MinRouteLength
	wMax := e.params.MaxRouteLength

	plan := e.plan(neighbors, r, wMin, wMax)

	for _, w := range plan {
		ad := message.CopyWith(e.self, w.length)
		if err := sink.SendAdvertisement(ctx, ad, w.seed, w.length); err != nil {
			return err
		}
	}
	advertisementtrace.RecordPlan(span, len(plan))
	e.logger.Debug("advertised self", logger.F("walks", len(plan)), logger.F("degree", d))
	return nil
}

// walk is one planned sendAdvertisement(m, seed, length) call.
type walk struct {
	seed   domain.NodeID
	length int
}

// plan implements the three-case apportionment across the degree of the
// caller's neighbor set. neighbors must be non-empty.
func (e *Engine) plan(neighbors []domain.NodeID, r, wMin, wMax int) []walk {
	d := len(neighbors)

	// Case A: degree too low to reach r even saturating every neighbor at
	// w_max. Send to every neighbor at length w_max.
	if d*wMax < r {
		plan := make([]walk, d)
		for i, n := range neighbors {
			plan[i] = walk{seed: n, length: wMax}
		}
		return plan
	}

	// Case B: degree high enough that r/w_min neighbors already suffice.
	// Use only the first `routes` entries of the ordered list.
	if d*wMin > r {
		routes := r / wMin
		if routes == 0 {
			routes = 1
		}
		return apportion(neighbors[:routes], r, wMin)
	}

	// Case C: in between. One walk per neighbor, r apportioned across all
	// d of them.
	return apportion(neighbors, r, wMin)
}

// apportion distributes r hops across len(seeds) walks: stdLen = r div
// routes, rem = r mod routes; the first rem walks (in seed order) get
// stdLen+1, the rest get stdLen. A computed length below w_min is
// clipped up to w_min rather than emitting a too-short walk.
func apportion(seeds []domain.NodeID, r, wMin int) []walk {
	routes := len(seeds)
	if routes == 0 {
		return nil
	}
	stdLen := r / routes
	rem := r % routes

	plan := make([]walk, routes)
	for i, seed := range seeds {
		length := stdLen
		if i < rem {
			length++
		}
		if length < wMin {
			length = wMin
		}
		plan[i] = walk{seed: seed, length: length}
	}
	return plan
}

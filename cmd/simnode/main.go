// Command simnode runs an in-process simulation of several Kaleidoscope
// nodes connected by Go channels instead of a real network transport,
// each with its own RoutingTable and Engine, useful for exercising
// advertiseSelf/forwarding behavior across a small trust graph without
// spinning up separate processes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"kaleidoscope/internal/domain"
	"kaleidoscope/internal/engine"
	"kaleidoscope/internal/logger"
	"kaleidoscope/internal/routingtable"
)

// wireMessage is what travels over a simNode's input channel: an
// advertisement together with the TTL it was sent with.
type wireMessage struct {
	ad  domain.Advertisement
	ttl int
}

// simNode owns one RoutingTable/Engine pair and a channel "wire" to each
// of its neighbors in the simulation, fed by a run loop analogous to a
// channel-driven message-passing simulation node.
type simNode struct {
	id     domain.NodeID
	table  *routingtable.RoutingTable
	engine *engine.Engine
	input  chan wireMessage
	peers  map[domain.NodeID]chan<- wireMessage
	logger logger.Logger
}

func (n *simNode) SendAdvertisement(ctx context.Context, message domain.Advertisement, neighbor domain.NodeID, ttl int) error {
	out, ok := n.peers[neighbor]
	if !ok {
		return fmt.Errorf("simnode %s: no wire to neighbor %s", n.id, neighbor)
	}
	select {
	case out <- wireMessage{ad: message, ttl: ttl}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run listens on n.input until ctx is cancelled, handing every inbound
// advertisement to the Engine's forwarding rule.
func (n *simNode) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.input:
			forwarded, err := n.engine.HandleAdvertisement(ctx, msg.ad, n)
			if err != nil {
				n.logger.Warn("handleAdvertisement failed", logger.F("err", err))
				continue
			}
			n.logger.Debug("handled advertisement",
				logger.FAdvertisement("advertisement", msg.ad),
				logger.F("forwarded", forwarded),
			)
		}
	}
}

func main() {
	numNodes := flag.Int("nodes", 8, "number of simulated nodes")
	idealReach := flag.Int("ideal-reach", 6, "target reach per advertiseSelf call")
	minLen := flag.Int("min-route-length", 2, "minimum walk length")
	maxLen := flag.Int("max-route-length", 5, "maximum walk length")
	seed := flag.Int64("seed", 1, "topology random seed")
	flag.Parse()

	lgr := &logger.NopLogger{}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodes := make([]*simNode, *numNodes)
	tables := make([]*routingtable.RoutingTable, *numNodes)
	ids := make([]domain.NodeID, *numNodes)

	for i := range nodes {
		ids[i] = domain.NewNodeID(fmt.Sprintf("simnode-%d", i))
		tables[i] = routingtable.New()
	}

	params := engine.Params{IdealReach: *idealReach, MinRouteLength: *minLen, MaxRouteLength: *maxLen}

	for i := range nodes {
		nodes[i] = &simNode{
			id:     ids[i],
			table:  tables[i],
			input:  make(chan wireMessage, 64),
			peers:  make(map[domain.NodeID]chan<- wireMessage),
			logger: lgr,
		}
		nodes[i].engine = engine.New(ids[i], tables[i], params, engine.WithLogger(lgr))
	}

	// Wire a random trust graph: each node makes up to `degree` random peer
	// picks (self-picks are skipped), mutating both sides' routing tables
	// and wire maps.
	r := rand.New(rand.NewSource(*seed))
	degree := 3
	if degree > len(nodes)-1 {
		degree = len(nodes) - 1
	}
	for i, n := range nodes {
		for k := 0; k < degree; k++ {
			j := r.Intn(len(nodes))
			if j == i {
				continue
			}
			peer := nodes[j]
			n.table.AddNeighbor(peer.id)
			peer.table.AddNeighbor(n.id)
			n.peers[peer.id] = peer.input
			peer.peers[n.id] = n.input
		}
	}

	for _, n := range nodes {
		go n.run(ctx)
	}

	log.Printf("simulating %d nodes, advertising self every 2s until interrupted", len(nodes))
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("simulation stopped")
			return
		case <-ticker.C:
			for _, n := range nodes {
				ad := domain.NewAdvertisement(n.id, 0, nil)
				if err := n.engine.AdvertiseSelf(ctx, ad, n); err != nil {
					log.Printf("node %s: advertiseSelf failed: %v", n.id, err)
				}
			}
		}
	}
}

// Command node runs a single Kaleidoscope node: it loads configuration,
// restores its routing table from the configured persistence adapter,
// drives the Advertisement Engine against an in-process loopback sink
// (network transport is out of scope for this module), and exposes an
// interactive liner shell for manually adding/removing neighbors and
// triggering advertisements.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"kaleidoscope/internal/config"
	"kaleidoscope/internal/domain"
	"kaleidoscope/internal/engine"
	"kaleidoscope/internal/logger"
	zapfactory "kaleidoscope/internal/logger/zap"
	"kaleidoscope/internal/persistence"
	"kaleidoscope/internal/routingtable"
	"kaleidoscope/internal/telemetry"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	advertiseEvery := flag.Duration("advertise-interval", 0, "if > 0, automatically advertiseSelf on this interval")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	var self domain.NodeID
	if cfg.Node.Id == "" {
		host, _ := os.Hostname()
		self = domain.NewNodeID(fmt.Sprintf("%s-%d", host, os.Getpid()))
	} else {
		self, err = domain.NodeIDFromHex(cfg.Node.Id)
		if err != nil {
			lgr.Error("invalid node id in configuration", logger.F("err", err))
			os.Exit(1)
		}
	}
	lgr = lgr.Named("node")
	lgr.Info("node initializing", logger.FNodeID("id", self))

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, "kaleidoscope-node", self)
	if err != nil {
		lgr.Error("failed to initialize telemetry", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var adapter persistence.Adapter
	switch cfg.Persistence.Kind {
	case "file":
		adapter = persistence.NewFileAdapter(cfg.Persistence.Path, lgr.Named("persistence"))
	default:
		adapter = persistence.NewMemoryAdapter(lgr.Named("persistence"))
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	snapshot, err := adapter.Load(loadCtx)
	cancel()
	if err != nil {
		lgr.Warn("discarding unreadable persisted snapshot, starting empty", logger.F("err", err))
		snapshot = routingtable.Snapshot{}
	}

	rt, err := routingtable.NewFromSnapshot(snapshot, routingtable.WithLogger(lgr.Named("routingtable")))
	if err != nil {
		lgr.Warn("discarding invalid persisted snapshot, starting empty", logger.F("err", err))
		rt = routingtable.New(routingtable.WithLogger(lgr.Named("routingtable")))
	}
	lgr.Debug("routing table restored", logger.F("size", rt.Size()))

	eng := engine.New(self, rt, engine.Params{
		IdealReach:     cfg.Advertisement.IdealReach,
		MinRouteLength: cfg.Advertisement.MinRouteLength,
		MaxRouteLength: cfg.Advertisement.MaxRouteLength,
	}, engine.WithLogger(lgr.Named("engine")))

	sink := &loopbackSink{self: self, table: rt, engine: eng, logger: lgr.Named("sink")}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ticker *time.Ticker
	tickerDone := make(chan struct{})
	if *advertiseEvery > 0 {
		ticker = time.NewTicker(*advertiseEvery)
		go func() {
			defer close(tickerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					ad := domain.NewAdvertisement(self, 0, nil)
					if err := eng.AdvertiseSelf(ctx, ad, sink); err != nil {
						lgr.Warn("periodic advertiseSelf failed", logger.F("err", err))
					}
				}
			}
		}()
	}

	shellDone := make(chan struct{})
	go func() {
		defer close(shellDone)
		runShell(ctx, self, rt, eng, sink, lgr)
	}()

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received")
	case <-shellDone:
		stop()
	}

	if ticker != nil {
		ticker.Stop()
		<-tickerDone
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adapter.Store(saveCtx, rt.Snapshot()); err != nil {
		lgr.Error("failed to persist snapshot on shutdown", logger.F("err", err))
	} else {
		lgr.Info("snapshot persisted")
	}
}

// loopbackSink implements engine.Sink by delivering advertisements
// directly back into this same node's Engine, since network transport is
// out of scope for this module. It is also the natural place to plug in a
// real transport later: SendAdvertisement is the only method a wire
// implementation would need to replace.
type loopbackSink struct {
	self   domain.NodeID
	table  *routingtable.RoutingTable
	engine *engine.Engine
	logger logger.Logger
}

func (s *loopbackSink) SendAdvertisement(ctx context.Context, message domain.Advertisement, neighbor domain.NodeID, ttl int) error {
	s.logger.Debug("sendAdvertisement",
		logger.FAdvertisement("message", message),
		logger.FNodeID("neighbor", neighbor),
		logger.F("ttl", ttl),
	)
	if !s.table.Contains(neighbor) {
		return fmt.Errorf("sendAdvertisement: unknown neighbor %s", neighbor)
	}
	_, err := s.engine.HandleAdvertisement(ctx, message, s)
	return err
}

func runShell(ctx context.Context, self domain.NodeID, rt *routingtable.RoutingTable, eng *engine.Engine, sink engine.Sink, lgr logger.Logger) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("kaleidoscope node %s\n", self)
	fmt.Println("Available commands: add <id>/remove <id>/list/size/advertise/exit")

	for {
		if ctx.Err() != nil {
			return
		}
		input, err := line.Prompt(fmt.Sprintf("kaleidoscope[%s]> ", self))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "add":
			if len(args) < 2 {
				fmt.Println("usage: add <id>")
				continue
			}
			id, err := domain.NodeIDFromHex(args[1])
			if err != nil {
				id = domain.NewNodeID(args[1])
			}
			rt.AddNeighbor(id)
			fmt.Printf("added %s\n", id)

		case "remove":
			if len(args) < 2 {
				fmt.Println("usage: remove <id>")
				continue
			}
			id, err := domain.NodeIDFromHex(args[1])
			if err != nil {
				id = domain.NewNodeID(args[1])
			}
			rt.RemoveNeighbor(id)
			fmt.Printf("removed %s\n", id)

		case "list":
			for _, n := range rt.GetOrderedNeighbors() {
				fmt.Println(n)
			}

		case "size":
			fmt.Println(rt.Size())

		case "advertise":
			length := 0
			if len(args) > 1 {
				length, _ = strconv.Atoi(args[1])
			}
			ad := domain.NewAdvertisement(self, length, nil)
			if err := eng.AdvertiseSelf(ctx, ad, sink); err != nil {
				fmt.Printf("advertiseSelf failed: %v\n", err)
			}

		case "exit", "quit":
			return

		default:
			fmt.Println("unknown command")
		}
	}
}

package persistence

import (
	"context"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"kaleidoscope/internal/domain"
	"kaleidoscope/internal/logger"
	"kaleidoscope/internal/routingtable"
)

// wireSnapshot is the YAML-serializable form of a routingtable.Snapshot.
// NodeIDs are rendered as hex strings since a Go array type cannot be a
// YAML mapping key directly.
type wireSnapshot struct {
	RoutesMap           map[string]string `yaml:"routesMap"`
	OrderedNeighborsList []string         `yaml:"orderedNeighborsList"`
}

// FileAdapter persists a Snapshot to a single YAML file on disk, the same
// serialization library the rest of the module uses for configuration.
// Guarded by a mutex so concurrent Store/Load calls never interleave a
// partial write with a read.
type FileAdapter struct {
	path   string
	logger logger.Logger
	mu     sync.RWMutex
}

// NewFileAdapter builds a FileAdapter writing to and reading from path.
func NewFileAdapter(path string, lgr logger.Logger) *FileAdapter {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &FileAdapter{path: path, logger: lgr}
}

// Store serializes snapshot to YAML and writes it to the adapter's path.
func (a *FileAdapter) Store(ctx context.Context, snapshot routingtable.Snapshot) error {
	w := toWire(snapshot)
	data, err := yaml.Marshal(w)
	if err != nil {
		return ioError("marshal snapshot", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.WriteFile(a.path, data, 0o600); err != nil {
		return ioError("write snapshot file", err)
	}
	a.logger.Debug("stored snapshot", logger.F("path", a.path), logger.F("routes", len(snapshot.Routes)))
	return nil
}

// Load reads and deserializes the Snapshot at the adapter's path. A
// missing file yields an empty, valid Snapshot rather than an error,
// matching a freshly-bootstrapped node with no neighbors yet.
func (a *FileAdapter) Load(ctx context.Context) (routingtable.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(a.path)
	if os.IsNotExist(err) {
		return routingtable.Snapshot{}, nil
	}
	if err != nil {
		return routingtable.Snapshot{}, ioError("read snapshot file", err)
	}

	var w wireSnapshot
	if err := yaml.Unmarshal(data, &w); err != nil {
		return routingtable.Snapshot{}, ioError("unmarshal snapshot", err)
	}

	snapshot, err := fromWire(w)
	if err != nil {
		return routingtable.Snapshot{}, ioError("decode snapshot", err)
	}
	if err := routingtable.ValidateSnapshot(snapshot); err != nil {
		return routingtable.Snapshot{}, ioError("validate snapshot", err)
	}
	a.logger.Debug("loaded snapshot", logger.F("path", a.path), logger.F("routes", len(snapshot.Routes)))
	return snapshot, nil
}

func toWire(s routingtable.Snapshot) wireSnapshot {
	w := wireSnapshot{
		RoutesMap:            make(map[string]string, len(s.Routes)),
		OrderedNeighborsList: make([]string, len(s.OrderedNeighbors)),
	}
	for k, v := range s.Routes {
		w.RoutesMap[k.String()] = v.String()
	}
	for i, id := range s.OrderedNeighbors {
		w.OrderedNeighborsList[i] = id.String()
	}
	return w
}

func fromWire(w wireSnapshot) (routingtable.Snapshot, error) {
	routes := make(map[domain.NodeID]domain.NodeID, len(w.RoutesMap))
	for k, v := range w.RoutesMap {
		kid, err := domain.NodeIDFromHex(k)
		if err != nil {
			return routingtable.Snapshot{}, err
		}
		vid, err := domain.NodeIDFromHex(v)
		if err != nil {
			return routingtable.Snapshot{}, err
		}
		routes[kid] = vid
	}
	ordered := make([]domain.NodeID, len(w.OrderedNeighborsList))
	for i, s := range w.OrderedNeighborsList {
		id, err := domain.NodeIDFromHex(s)
		if err != nil {
			return routingtable.Snapshot{}, err
		}
		ordered[i] = id
	}
	return routingtable.Snapshot{Routes: routes, OrderedNeighbors: ordered}, nil
}

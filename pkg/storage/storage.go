package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Backend is the label this store reports in graph lookup metrics.
const Backend = "memory"

type edgeKey struct {
	from, to string
	typ      topology.EdgeType
}

// GraphStorage is an in-memory topology graph. Every index preserves insertion
// order, which is the natural ordering lookups return results in.
type GraphStorage struct {
	// Core data structures
	nodes     map[string]*topology.Node
	nodeOrder []string
	edges     []topology.Edge
	edgeIndex map[edgeKey]int
	vulns     map[string]*topology.Vulnerability
	vulnOrder []string

	// Indexes for fast lookups
	nodesByName        map[string][]string
	nodesByKind        map[topology.NodeKind][]string
	nodesByZone        map[string][]string
	nodesByCriticality map[topology.Criticality][]string
	outgoingEdges      map[string][]int // node key -> edge ordinals
	incomingEdges      map[string][]int
	affects            map[string][]string // node key -> vulnerability ids

	// Concurrency control
	mu     sync.RWMutex
	closed bool

	metrics *metrics.Registry
	logger  logging.Logger

	// Statistics (using atomic operations for thread-safety)
	stats            Statistics
	avgQueryTimeBits uint64
}

// Config holds optional collaborators for GraphStorage.
type Config struct {
	Metrics *metrics.Registry
	Logger  logging.Logger
}

// New creates an empty in-memory graph with default config.
func New() *GraphStorage {
	return NewWithConfig(Config{})
}

// NewWithConfig creates an empty in-memory graph.
func NewWithConfig(config Config) *GraphStorage {
	return &GraphStorage{
		nodes:              make(map[string]*topology.Node),
		edgeIndex:          make(map[edgeKey]int),
		vulns:              make(map[string]*topology.Vulnerability),
		nodesByName:        make(map[string][]string),
		nodesByKind:        make(map[topology.NodeKind][]string),
		nodesByZone:        make(map[string][]string),
		nodesByCriticality: make(map[topology.Criticality][]string),
		outgoingEdges:      make(map[string][]int),
		incomingEdges:      make(map[string][]int),
		affects:            make(map[string][]string),
		metrics:            config.Metrics,
		logger:             logging.OrDefault(config.Logger).With(logging.Component("storage")),
	}
}

// Close releases the graph. Every later call fails with ErrStorageClosed.
func (gs *GraphStorage) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true
	gs.logger.Debug("storage closed",
		logging.Int("nodes", len(gs.nodes)),
		logging.Int("edges", len(gs.edges)),
	)
	return nil
}

// begin checks the request context and closed flag, and returns a completion
// function that records timing and the lookup metric. Callers hold gs.mu.
func (gs *GraphStorage) begin(ctx context.Context, op string) (func(error), error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(op).Cause(err).Err()
	}
	if gs.closed {
		return nil, NewError(op).Cause(ErrStorageClosed).Err()
	}
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		gs.trackQueryTime(elapsed)
		if gs.metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		gs.metrics.RecordGraphLookup(Backend, op, status, elapsed)
	}, nil
}

func (gs *GraphStorage) publishCounts() {
	if gs.metrics != nil {
		gs.metrics.UpdateStorageCounts(uint64(len(gs.nodes)), uint64(len(gs.edges)), uint64(len(gs.vulns)))
	}
}

var (
	_ topology.Graph   = (*GraphStorage)(nil)
	_ topology.Builder = (*GraphStorage)(nil)
)

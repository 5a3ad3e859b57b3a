package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorStoreMetric selects the distance function backing a HNSWVectorIndex.
type vectorStoreMetric string

const (
	metricCosine    vectorStoreMetric = "cos"
	metricEuclidean vectorStoreMetric = "l2"
)

// HNSWVectorIndex implements VectorIndex (C3) over coder/hnsw, with a gob
// persisted sidecar carrying the scalar fields (name, kind, file_path,
// exported, language, text) each vector needs for knn(..., filter) support.
type HNSWVectorIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	dim    int
	metric vectorStoreMetric

	idMap   map[string]uint64
	keyMap  map[uint64]string
	records map[uint64]*VectorRecord // scalar sidecar, keyed by internal key
	nextKey uint64

	closed bool
}

var _ VectorIndex = (*HNSWVectorIndex)(nil)

// hnswSidecar is the gob-encoded persistence unit for ID mappings plus
// scalar fields; the graph topology itself is persisted separately via
// graph.Export/Import.
type hnswSidecar struct {
	IDMap   map[string]uint64
	Records map[uint64]*VectorRecord
	NextKey uint64
	Dim     int
	Metric  vectorStoreMetric
}

// NewHNSWVectorIndex creates an in-memory vector index for the given
// dimension. Call Load to populate it from a prior Save.
func NewHNSWVectorIndex(dim int, metric string) (*HNSWVectorIndex, error) {
	m := vectorStoreMetric(metric)
	if m == "" {
		m = metricCosine
	}

	graph := hnsw.NewGraph[uint64]()
	switch m {
	case metricCosine:
		graph.Distance = hnsw.CosineDistance
	case metricEuclidean:
		graph.Distance = hnsw.EuclideanDistance
	default:
		return nil, fmt.Errorf("unknown vector metric: %s", metric)
	}
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSWVectorIndex{
		graph:   graph,
		dim:     dim,
		metric:  m,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		records: make(map[uint64]*VectorRecord),
	}, nil
}

func (s *HNSWVectorIndex) Dimension() int {
	return s.dim
}

// Upsert inserts or replaces vectors. Replacement uses lazy deletion (orphan
// the old graph node rather than call graph.Delete) because coder/hnsw has a
// known issue deleting the last remaining node from a graph.
func (s *HNSWVectorIndex) Upsert(ctx context.Context, recs []*VectorRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, r := range recs {
		if len(r.Vector) != s.dim {
			return ErrDimensionMismatch{Expected: s.dim, Got: len(r.Vector)}
		}
	}

	for _, r := range recs {
		if existingKey, exists := s.idMap[r.ID]; exists {
			delete(s.keyMap, existingKey)
			delete(s.records, existingKey)
			delete(s.idMap, r.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		if s.metric == metricCosine {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[r.ID] = key
		s.keyMap[key] = r.ID
		stored := *r
		stored.Vector = vec
		s.records[key] = &stored
	}

	return nil
}

// KNN returns up to k nearest neighbors to query, optionally restricted by a
// predicate over each candidate's stored scalar fields. coder/hnsw has no
// native filter predicate, so over-fetch and filter client-side: request a
// wider candidate set than k before applying filter, since filtered-out hits
// would otherwise starve the result count.
func (s *HNSWVectorIndex) KNN(ctx context.Context, query []float32, k int, filter VectorFilter) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(query) != s.dim {
		return nil, ErrDimensionMismatch{Expected: s.dim, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	normalizedQuery := make([]float32, len(query))
	copy(normalizedQuery, query)
	if s.metric == metricCosine {
		normalizeVectorInPlace(normalizedQuery)
	}

	fetchK := k
	if filter != nil {
		fetchK = k * 4
		if fetchK < 50 {
			fetchK = 50
		}
	}

	nodes := s.graph.Search(normalizedQuery, fetchK)

	out := make([]*VectorResult, 0, k)
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned (lazily deleted) node
		}
		if filter != nil {
			rec := s.records[node.Key]
			if rec == nil || !filter(rec) {
				continue
			}
		}

		distance := s.graph.Distance(normalizedQuery, node.Value)
		out = append(out, &VectorResult{ID: id, Distance: distance})
		if len(out) >= k {
			break
		}
	}

	return out, nil
}

// Delete lazily removes ids: the graph node is orphaned rather than
// physically removed, matching Upsert's replacement strategy.
func (s *HNSWVectorIndex) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vector index is closed")
	}
	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.records, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

func (s *HNSWVectorIndex) AllIDs(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	return ids
}

// Save persists the graph topology to path (atomic temp-file rename) and the
// scalar sidecar (ID mappings + per-vector fields) to path+".meta".
func (s *HNSWVectorIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vector index dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create vector index file: %w", err)
	}
	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close vector index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename vector index file: %w", err)
	}

	return s.saveSidecar(path + ".meta")
}

func (s *HNSWVectorIndex) saveSidecar(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create sidecar temp file: %w", err)
	}

	sc := hnswSidecar{
		IDMap:   s.idMap,
		Records: s.records,
		NextKey: s.nextKey,
		Dim:     s.dim,
		Metric:  s.metric,
	}

	enc := gob.NewEncoder(file)
	if err := enc.Encode(sc); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close sidecar temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load populates the index from a prior Save at path.
func (s *HNSWVectorIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := s.loadSidecar(path + ".meta"); err != nil {
		return fmt.Errorf("load sidecar: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector index file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	if err := s.graph.Import(reader); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func (s *HNSWVectorIndex) loadSidecar(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sidecar: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("close sidecar file", slog.String("error", cerr.Error()))
		}
	}()

	var sc hnswSidecar
	if err := gob.NewDecoder(file).Decode(&sc); err != nil {
		return fmt.Errorf("decode sidecar: %w", err)
	}

	s.idMap = sc.IDMap
	s.records = sc.Records
	s.nextKey = sc.NextKey
	s.dim = sc.Dim
	s.metric = sc.Metric
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	switch s.metric {
	case metricCosine:
		s.graph.Distance = hnsw.CosineDistance
	case metricEuclidean:
		s.graph.Distance = hnsw.EuclideanDistance
	}

	return nil
}

func (s *HNSWVectorIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	dimension int
	ids       []string
	points    []Point
}

// Memory is a process-local Store used by the CLI and tests. Search is a
// linear cosine scan.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *Memory) CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	if metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return ErrCollectionExists
	}
	m.collections[name] = &memCollection{dimension: dimension}
	return nil
}

func (m *Memory) Upload(ctx context.Context, collection string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err := checkDimensions(collection, c.dimension, points); err != nil {
		return err
	}
	for _, p := range points {
		c.ids = append(c.ids, uuid.NewString())
		c.points = append(c.points, clonePoint(p))
	}
	return nil
}

func (m *Memory) Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if len(vector) != c.dimension {
		return nil, &DimensionMismatchError{Collection: collection, Want: c.dimension, Got: len(vector)}
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(c.points))
	for i, p := range c.points {
		if !filter.Match(p.Payload) {
			continue
		}
		hits = append(hits, Hit{ID: c.ids[i], Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Delete(ctx context.Context, collection string, filter DeleteFilter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := filter.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	ids := c.ids[:0]
	points := c.points[:0]
	for i, p := range c.points {
		if filter.Match(p.Payload) {
			continue
		}
		ids = append(ids, c.ids[i])
		points = append(points, p)
	}
	c.ids, c.points = ids, points
	return nil
}

// Len reports how many points a collection holds.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[collection]; ok {
		return len(c.points)
	}
	return 0
}

func clonePoint(p Point) Point {
	p.Vector = append([]float32(nil), p.Vector...)
	p.Payload.Metadata.Pages = append([]int(nil), p.Payload.Metadata.Pages...)
	return p
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

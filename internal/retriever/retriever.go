// Package retriever runs expanded queries against a collection and
// attributes the results to their source files.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/metrics"
	"applicant-rag/internal/vectorstore"
)

const DefaultLimit = 10

type Dedupe int

const (
	DedupeByID Dedupe = iota
	DedupeByContent
	DedupeNone
)

func ParseDedupe(s string) (Dedupe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return DedupeByID, nil
	case "content":
		return DedupeByContent, nil
	case "none":
		return DedupeNone, nil
	}
	return DedupeByID, fmt.Errorf("unknown dedupe mode %q", s)
}

type Result struct {
	Chunks        []domain.Chunk
	SourceSummary string
}

type Retriever struct {
	embedder ai.Embedder
	store    vectorstore.Store
	dedupe   Dedupe
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

type Option func(*Retriever)

func WithDedupe(d Dedupe) Option {
	return func(r *Retriever) { r.dedupe = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Retriever) { r.log = l }
}

func New(embedder ai.Embedder, store vectorstore.Store, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve searches collection once per query and returns the union of the
// hits in query order, then score order.
func (r *Retriever) Retrieve(ctx context.Context, collection string, queries []string, k int, filter *vectorstore.Filter) (*Result, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultLimit
	}

	seen := make(map[string]struct{})
	var chunks []domain.Chunk
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		vec, err := r.embedder.Embed(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("embed query failed: %w", err)
		}
		hits, err := r.store.Search(ctx, collection, vec, k, filter)
		if err != nil {
			return nil, fmt.Errorf("search %s failed: %w", collection, err)
		}
		for _, h := range hits {
			if key, ok := r.dedupeKey(h); ok {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			chunks = append(chunks, h.Chunk())
		}
	}

	r.metrics.ObserveRetrieval(len(chunks))
	r.log.Debug().Str("collection", collection).Int("queries", len(queries)).Int("chunks", len(chunks)).Msg("retrieved")
	return &Result{Chunks: chunks, SourceSummary: SourceSummary(chunks)}, nil
}

func (r *Retriever) dedupeKey(h vectorstore.Hit) (string, bool) {
	switch r.dedupe {
	case DedupeByID:
		if h.ID != "" {
			return "id:" + h.ID, true
		}
		return "content:" + h.Payload.PageContent, true
	case DedupeByContent:
		return "content:" + h.Payload.PageContent, true
	}
	return "", false
}

// SourceSummary lists each contributing file once, in first-seen order,
// with its sorted distinct pages: "a.pdf. Pages: [1, 3] and b.txt: Pages: unknown".
// A file is reported as unknown as soon as one of its chunks has no page.
func SourceSummary(chunks []domain.Chunk) string {
	var order []string
	pages := make(map[string]map[int]struct{})
	unknown := make(map[string]bool)
	for _, c := range chunks {
		name := c.Metadata.Filename
		if name == "" {
			name = c.Metadata.SourceFile
		}
		if name == "" {
			continue
		}
		set, ok := pages[name]
		if !ok {
			set = make(map[int]struct{})
			pages[name] = set
			order = append(order, name)
		}
		known := false
		for _, p := range c.Metadata.Pages {
			if p > 0 {
				set[p] = struct{}{}
				known = true
			}
		}
		if !known {
			unknown[name] = true
		}
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		set := pages[name]
		if unknown[name] {
			parts = append(parts, name+": Pages: unknown")
			continue
		}
		nums := make([]int, 0, len(set))
		for p := range set {
			nums = append(nums, p)
		}
		sort.Ints(nums)
		strs := make([]string, len(nums))
		for i, n := range nums {
			strs[i] = strconv.Itoa(n)
		}
		parts = append(parts, name+". Pages: ["+strings.Join(strs, ", ")+"]")
	}
	return strings.Join(parts, " and ")
}

// Package indexer embeds chunks and writes them to a vector collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/metrics"
	"applicant-rag/internal/vectorstore"
)

type Indexer struct {
	embedder    ai.Embedder
	store       vectorstore.Store
	locker      Locker
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

type Option func(*Indexer)

func WithLocker(l Locker) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.locker = l
		}
	}
}

func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(ix *Indexer) { ix.log = l }
}

// New expects embedder to be the gated client shared by the process.
func New(embedder ai.Embedder, store vectorstore.Store, opts ...Option) *Indexer {
	ix := &Indexer{
		embedder:    embedder,
		store:       store,
		locker:      NewKeyedMutex(),
		concurrency: runtime.GOMAXPROCS(0),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index embeds chunks and uploads them to collection in one write, creating
// the collection from the first vector's dimension when it is missing. It
// returns the number of points written.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.Chunk, collection string, tag domain.Tag, filename string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if !tag.Valid() {
		return 0, fmt.Errorf("index %s: %w", filename, domain.ErrUnknownTag)
	}

	sample, err := ix.embedder.Embed(ctx, chunks[0].Content)
	if err != nil {
		return 0, fmt.Errorf("embed sample chunk failed: %w", err)
	}
	if len(sample) == 0 {
		return 0, fmt.Errorf("embed sample chunk failed: %w", ai.ErrEmptyResponse)
	}
	if err := ix.ensureCollection(ctx, collection, len(sample)); err != nil {
		return 0, err
	}

	vectors := make([][]float32, len(chunks))
	vectors[0] = sample
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i := 1; i < len(chunks); i++ {
		g.Go(func() error {
			v, err := ix.embedder.Embed(gctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d failed: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			Vector:  vectors[i],
			Payload: vectorstore.PayloadFor(c, tag, filename),
		}
	}
	if err := ix.store.Upload(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("upload %d points to %s failed: %w", len(points), collection, err)
	}

	ix.metrics.AddChunksIndexed(len(points))
	ix.log.Info().Str("collection", collection).Str("filename", filename).Str("tag", tag.String()).
		Int("points", len(points)).Msg("chunks indexed")
	return len(points), nil
}

func (ix *Indexer) ensureCollection(ctx context.Context, collection string, dimension int) error {
	release, err := ix.locker.Lock(ctx, "collection:"+collection)
	if err != nil {
		return fmt.Errorf("lock collection %s failed: %w", collection, err)
	}
	defer release()

	exists, err := ix.store.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s failed: %w", collection, err)
	}
	if exists {
		return nil
	}
	err = ix.store.CreateCollection(ctx, collection, dimension, vectorstore.MetricCosine)
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionExists) {
		return fmt.Errorf("create collection %s failed: %w", collection, err)
	}
	if err == nil {
		ix.log.Info().Str("collection", collection).Int("dimension", dimension).Msg("collection created")
	}
	return nil
}

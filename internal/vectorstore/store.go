// Package vectorstore stores chunk embeddings per collection and answers
// top-k similarity queries. Backends: memory, Qdrant, pgvector.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"applicant-rag/internal/domain"
)

var (
	// ErrCollectionExists is returned by CreateCollection when another writer
	// won the race. Callers treat it as success.
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrInvalidFilter      = errors.New("invalid search filter")
)

// DimensionMismatchError is returned when a vector does not match the
// dimension the collection was created with.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %s expects dimension %d, got %d", e.Collection, e.Want, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

type Metric string

const MetricCosine Metric = "cosine"

type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error
	// Upload writes all points or none of them.
	Upload(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Hit, error)
	Delete(ctx context.Context, collection string, filter DeleteFilter) error
}

type Point struct {
	Vector  []float32
	Payload Payload
}

type Payload struct {
	Tag         domain.Tag `json:"tag"`
	Filename    string     `json:"filename"`
	PageContent string     `json:"page_content"`
	Metadata    Metadata   `json:"metadata"`
}

type Metadata struct {
	Source string `json:"source"`
	// Page is the first contributing page, 0 when unknown.
	Page  int   `json:"page"`
	Pages []int `json:"pages,omitempty"`
}

type Hit struct {
	ID      string
	Score   float32
	Payload Payload
}

// Filter matches a point when its tag is any of Tags OR its filename is any
// of Filenames. A nil or empty filter matches everything.
type Filter struct {
	Tags      []domain.Tag
	Filenames []string
}

func (f *Filter) Empty() bool {
	return f == nil || (len(f.Tags) == 0 && len(f.Filenames) == 0)
}

func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, t := range f.Tags {
		if !t.Valid() {
			return fmt.Errorf("%w: tag %q", ErrInvalidFilter, t.String())
		}
	}
	for _, n := range f.Filenames {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: empty filename", ErrInvalidFilter)
		}
	}
	return nil
}

func (f *Filter) Match(p Payload) bool {
	if f.Empty() {
		return true
	}
	for _, t := range f.Tags {
		if p.Tag == t {
			return true
		}
	}
	for _, n := range f.Filenames {
		if p.Filename == n {
			return true
		}
	}
	return false
}

func (f *Filter) tagStrings() []string {
	out := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		out = append(out, t.String())
	}
	return out
}

// DeleteFilter matches points whose tag AND filename both equal the given
// values. Both are required.
type DeleteFilter struct {
	Tag      domain.Tag
	Filename string
}

func (f DeleteFilter) Validate() error {
	if !f.Tag.Valid() {
		return fmt.Errorf("%w: delete requires a tag", ErrInvalidFilter)
	}
	if strings.TrimSpace(f.Filename) == "" {
		return fmt.Errorf("%w: delete requires a filename", ErrInvalidFilter)
	}
	return nil
}

func (f DeleteFilter) Match(p Payload) bool {
	return p.Tag == f.Tag && p.Filename == f.Filename
}

// PayloadFor builds the stored payload of a chunk.
func PayloadFor(c domain.Chunk, tag domain.Tag, filename string) Payload {
	return Payload{
		Tag:         tag,
		Filename:    filename,
		PageContent: c.Content,
		Metadata: Metadata{
			Source: c.Metadata.SourceFile,
			Page:   c.Metadata.Page(),
			Pages:  c.Metadata.Pages,
		},
	}
}

// Chunk converts a hit back into a domain chunk.
func (h Hit) Chunk() domain.Chunk {
	pages := h.Payload.Metadata.Pages
	if len(pages) == 0 && h.Payload.Metadata.Page > 0 {
		pages = []int{h.Payload.Metadata.Page}
	}
	return domain.Chunk{
		ID:      h.ID,
		Content: h.Payload.PageContent,
		Metadata: domain.ChunkMetadata{
			SourceFile: h.Payload.Metadata.Source,
			Pages:      pages,
			Tag:        h.Payload.Tag,
			Filename:   h.Payload.Filename,
		},
	}
}

func checkDimensions(collection string, want int, points []Point) error {
	for _, p := range points {
		if len(p.Vector) != want {
			return &DimensionMismatchError{Collection: collection, Want: want, Got: len(p.Vector)}
		}
	}
	return nil
}

package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicant-rag/internal/domain"
)

func point(vec []float32, tag domain.Tag, filename, content string) Point {
	return Point{
		Vector: vec,
		Payload: Payload{
			Tag:         tag,
			Filename:    filename,
			PageContent: content,
			Metadata:    Metadata{Source: "/uploads/" + filename, Page: 1, Pages: []int{1}},
		},
	}
}

func seeded(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateCollection(ctx, "c", 2, MetricCosine))
	require.NoError(t, m.Upload(ctx, "c", []Point{
		point([]float32{1, 0}, domain.TagResearch, "paper.pdf", "research one"),
		point([]float32{0.9, 0.1}, domain.TagReviews, "review.docx", "review one"),
		point([]float32{0.8, 0.2}, domain.TagAwards, "awards.txt", "award one"),
		point([]float32{0, 1}, domain.TagResearch, "thesis.pdf", "research two"),
	}))
	return m
}

func contents(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Payload.PageContent
	}
	return out
}

func TestMemoryCreateCollectionTwice(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateCollection(context.Background(), "c", 3, MetricCosine))
	err := m.CreateCollection(context.Background(), "c", 3, MetricCosine)
	assert.ErrorIs(t, err, ErrCollectionExists)

	ok, err := m.CollectionExists(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemorySearchOrdersByScore(t *testing.T) {
	m := seeded(t)

	hits, err := m.Search(context.Background(), "c", []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"research one", "review one", "award one"}, contents(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.NotEmpty(t, hits[0].ID)
}

func TestMemorySearchFilterIsDisjunction(t *testing.T) {
	m := seeded(t)

	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{name: "tag only", filter: &Filter{Tags: []domain.Tag{domain.TagResearch}}, want: []string{"research one", "research two"}},
		{name: "filename only", filter: &Filter{Filenames: []string{"awards.txt"}}, want: []string{"award one"}},
		{
			name:   "tag or filename",
			filter: &Filter{Tags: []domain.Tag{domain.TagReviews}, Filenames: []string{"thesis.pdf"}},
			want:   []string{"review one", "research two"},
		},
		{name: "empty filter", filter: &Filter{}, want: []string{"research one", "review one", "award one", "research two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := m.Search(context.Background(), "c", []float32{1, 0}, 10, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, contents(hits))
		})
	}
}

func TestMemoryDimensionMismatch(t *testing.T) {
	m := seeded(t)

	err := m.Upload(context.Background(), "c", []Point{
		point([]float32{1, 0}, domain.TagResearch, "a.pdf", "ok"),
		point([]float32{1, 0, 0}, domain.TagResearch, "a.pdf", "bad"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.Want)
	assert.Equal(t, 3, dm.Got)
	assert.Equal(t, 4, m.Len("c"), "a rejected upload writes nothing")

	_, err = m.Search(context.Background(), "c", []float32{1}, 1, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryMissingCollection(t *testing.T) {
	m := NewMemory()
	_, err := m.Search(context.Background(), "nope", []float32{1}, 1, nil)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.ErrorIs(t, m.Upload(context.Background(), "nope", nil), ErrCollectionNotFound)
}

func TestMemoryDeleteRequiresTagAndFilename(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	err := m.Delete(ctx, "c", DeleteFilter{Filename: "paper.pdf"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	require.NoError(t, m.Delete(ctx, "c", DeleteFilter{Tag: domain.TagReviews, Filename: "paper.pdf"}))
	assert.Equal(t, 4, m.Len("c"))

	require.NoError(t, m.Delete(ctx, "c", DeleteFilter{Tag: domain.TagResearch, Filename: "paper.pdf"}))
	assert.Equal(t, 3, m.Len("c"))

	hits, err := m.Search(ctx, "c", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.NotContains(t, contents(hits), "research one")
}

func TestInvalidSearchFilter(t *testing.T) {
	m := seeded(t)
	_, err := m.Search(context.Background(), "c", []float32{1, 0}, 1, &Filter{Filenames: []string{" "}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = m.Search(context.Background(), "c", []float32{1, 0}, 1, &Filter{Tags: []domain.Tag{domain.TagUnspecified}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestHitChunkRoundTrip(t *testing.T) {
	c := domain.Chunk{
		Content:  "text",
		Metadata: domain.ChunkMetadata{SourceFile: "/u/a.pdf", Pages: []int{2, 3}},
	}
	p := PayloadFor(c, domain.TagFeedback, "a.pdf")
	assert.Equal(t, 2, p.Metadata.Page)

	got := Hit{ID: "id-1", Payload: p}.Chunk()
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "text", got.Content)
	assert.Equal(t, []int{2, 3}, got.Metadata.Pages)
	assert.Equal(t, domain.TagFeedback, got.Metadata.Tag)
	assert.Equal(t, "a.pdf", got.Metadata.Filename)
}

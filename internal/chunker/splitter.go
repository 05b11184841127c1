// Package chunker splits loaded documents into token-bounded chunks.
package chunker

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"applicant-rag/internal/domain"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	DefaultMinTokens    = 144
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Tokenizer is the length oracle shared with the context budgeter.
type Tokenizer interface {
	Count(text string) int
	Truncate(text string, max int) string
}

type Splitter struct {
	tok        Tokenizer
	chunkSize  int
	overlap    int
	minTokens  int
	separators []string
	workers    int
}

type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func WithMinTokens(min int) Option {
	return func(s *Splitter) {
		if min >= 0 {
			s.minTokens = min
		}
	}
}

func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// WithWorkers bounds how many documents are split in parallel.
func WithWorkers(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.workers = n
		}
	}
}

func New(tok Tokenizer, opts ...Option) *Splitter {
	s := &Splitter{
		tok:        tok,
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		minTokens:  DefaultMinTokens,
		separators: defaultSeparators,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 2
	}
	return s
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) MinTokens() int { return s.minTokens }

// Split turns documents into chunks: each document is cut into overlapping
// windows, adjacent windows are merged while they fit, and chunks that stay
// below the minimum token count are dropped. Degenerate input yields nil.
func (s *Splitter) Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	perDoc := make([][]domain.Chunk, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perDoc[i] = s.fragments(docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fragments []domain.Chunk
	for _, frags := range perDoc {
		fragments = append(fragments, frags...)
	}
	return s.Filter(s.Merge(fragments)), nil
}

func (s *Splitter) fragments(doc domain.Document) []domain.Chunk {
	pieces := s.splitText(doc.Text, s.separators)
	if len(pieces) == 0 {
		return nil
	}
	meta := domain.ChunkMetadata{
		SourceFile: doc.Metadata.SourceFile,
		Filename:   filepath.Base(doc.Metadata.SourceFile),
	}
	if doc.Metadata.Page > 0 {
		meta.Pages = []int{doc.Metadata.Page}
	}
	out := make([]domain.Chunk, 0, len(pieces))
	for _, p := range pieces {
		m := meta
		m.Pages = append([]int(nil), meta.Pages...)
		out = append(out, domain.Chunk{Content: p, Metadata: m})
	}
	return out
}

// Merge walks fragments in order and concatenates neighbours while the
// combined content stays within the chunk size.
func (s *Splitter) Merge(fragments []domain.Chunk) []domain.Chunk {
	var (
		out     []domain.Chunk
		current *domain.Chunk
	)
	for i := range fragments {
		next := fragments[i]
		if current == nil {
			c := next
			current = &c
			continue
		}
		combined := current.Content + " " + next.Content
		if s.tok.Count(combined) <= s.chunkSize {
			current.Content = combined
			current.Metadata = unionMetadata(current.Metadata, next.Metadata)
			continue
		}
		out = append(out, *current)
		c := next
		current = &c
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// Filter drops chunks below the minimum token count.
func (s *Splitter) Filter(chunks []domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for _, c := range chunks {
		if s.tok.Count(c.Content) >= s.minTokens {
			out = append(out, c)
		}
	}
	return out
}

func unionMetadata(a, b domain.ChunkMetadata) domain.ChunkMetadata {
	out := a
	if b.SourceFile != "" && !containsSource(a.SourceFile, b.SourceFile) {
		if out.SourceFile == "" {
			out.SourceFile = b.SourceFile
		} else {
			out.SourceFile += ", " + b.SourceFile
		}
	}
	if out.Filename == "" {
		out.Filename = b.Filename
	}
	for _, p := range b.Pages {
		if !containsInt(out.Pages, p) {
			out.Pages = append(out.Pages, p)
		}
	}
	return out
}

func containsSource(list, src string) bool {
	for _, s := range strings.Split(list, ", ") {
		if s == src {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// splitText recursively splits on the first separator present in text and
// merges the pieces into overlapping windows of at most chunkSize tokens.
func (s *Splitter) splitText(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}
	if sep == "" {
		return s.hardSplit(text)
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range strings.Split(text, sep) {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if s.tok.Count(piece) <= s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.mergeSplits(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, s.hardSplit(piece)...)
		} else {
			out = append(out, s.splitText(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.mergeSplits(good, sep)...)
	}
	return out
}

// mergeSplits packs pieces (each within chunkSize) into windows, carrying
// up to overlap tokens of trailing pieces into the next window.
func (s *Splitter) mergeSplits(pieces []string, sep string) []string {
	var (
		out     []string
		current []string
	)
	for _, piece := range pieces {
		if len(current) > 0 && s.tok.Count(joinWith(current, piece, sep)) > s.chunkSize {
			if w := strings.TrimSpace(strings.Join(current, sep)); w != "" {
				out = append(out, w)
			}
			for len(current) > 0 &&
				(s.tok.Count(strings.Join(current, sep)) > s.overlap ||
					s.tok.Count(joinWith(current, piece, sep)) > s.chunkSize) {
				current = current[1:]
			}
		}
		current = append(current, piece)
	}
	if w := strings.TrimSpace(strings.Join(current, sep)); w != "" {
		out = append(out, w)
	}
	return out
}

func joinWith(current []string, next, sep string) string {
	return strings.Join(current, sep) + sep + next
}

// hardSplit cuts text without natural boundaries into chunkSize prefixes.
func (s *Splitter) hardSplit(text string) []string {
	var out []string
	for text != "" {
		head := s.tok.Truncate(text, s.chunkSize)
		if head == "" || !strings.HasPrefix(text, head) {
			_, size := utf8.DecodeRuneInString(text)
			head = text[:size]
		}
		if w := strings.TrimSpace(head); w != "" {
			out = append(out, w)
		}
		text = text[len(head):]
	}
	return out
}

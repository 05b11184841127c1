// Package loader turns files into documents, one per page or record,
// dispatching on the file extension.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"applicant-rag/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyPath         = errors.New("file path is empty")
)

type Loader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// Func adapts a plain function to Loader.
type Func func(ctx context.Context, path string) ([]domain.Document, error)

func (f Func) Load(ctx context.Context, path string) ([]domain.Document, error) {
	return f(ctx, path)
}

// Registry maps lower-case extensions (without the dot) to loaders.
type Registry struct {
	loaders  map[string]Loader
	fallback Loader
}

// NewRegistry returns a registry with every built-in format. Unknown
// extensions are read as plain text.
func NewRegistry() *Registry {
	r := &Registry{
		loaders:  make(map[string]Loader),
		fallback: Func(loadText),
	}
	r.Register(Func(loadText), "txt", "text", "log")
	r.Register(Func(loadMarkdown), "md", "markdown")
	r.Register(Func(loadJSON), "json")
	r.Register(Func(loadCSV), "csv")
	r.Register(Func(loadPDF), "pdf")
	r.Register(Func(loadDOCX), "docx")
	r.Register(Func(loadPPTX), "pptx")
	r.Register(Func(loadXLSX), "xlsx")
	r.Register(Func(loadHTML), "html", "htm")
	r.Register(Func(loadXML), "xml")
	r.Register(Func(unsupported), "doc", "ppt", "xls")
	return r
}

func (r *Registry) Register(l Loader, exts ...string) {
	for _, ext := range exts {
		r.loaders[normalizeExt(ext)] = l
	}
}

// Extensions lists the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Lookup(path string) Loader {
	if l, ok := r.loaders[normalizeExt(filepath.Ext(path))]; ok {
		return l
	}
	return r.fallback
}

func (r *Registry) Load(ctx context.Context, path string) ([]domain.Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := r.Lookup(path).Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s failed: %w", filepath.Base(path), err)
	}
	return docs, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func unsupported(_ context.Context, path string) ([]domain.Document, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// pages builds one document per non-empty text, numbering from 1.
func pages(path string, texts []string) []domain.Document {
	docs := make([]domain.Document, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Text:     t,
			Metadata: domain.DocumentMetadata{SourceFile: path, Page: i + 1},
		})
	}
	return docs
}

package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// ExtractPages reads the whole PDF from r and returns the plain text of each
// page in order. Pages without extractable text, or that fail to parse, are
// returned as "" so page numbers stay aligned. Skipped pages are logged on
// the logger carried by ctx.
func ExtractPages(ctx context.Context, r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	return collectPages(ctx, pdfReader.NumPage(), func(i int) (string, error) {
		return pageText(pdfReader.Page(i))
	}), nil
}

func collectPages(ctx context.Context, total int, page func(i int) (string, error)) []string {
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		text, err := page(i)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("page", i).Msg("skip unreadable pdf page")
			text = ""
		}
		pages = append(pages, text)
	}
	return pages
}

func pageText(p pdf.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	// the content stream parser panics on some malformed fonts
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

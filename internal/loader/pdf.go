package loader

import (
	"context"
	"os"

	"applicant-rag/internal/domain"
	"applicant-rag/internal/pkg/pdfextract"
)

// loadPDF yields one document per page that has extractable text.
func loadPDF(ctx context.Context, path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	texts, err := pdfextract.ExtractPages(ctx, f)
	if err != nil {
		return nil, err
	}
	return pages(path, texts), nil
}

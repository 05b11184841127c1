package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"applicant-rag/internal/domain"
)

func loadText(_ context.Context, path string) ([]domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pages(path, []string{string(b)}), nil
}

var (
	mdCodeFence  = regexp.MustCompile("(?m)^```.*$")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*|_|~~)([^*_~\n]+)(\*\*|__|\*|_|~~)`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s?`)
	mdRule       = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	mdBullet     = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	mdBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

func loadMarkdown(_ context.Context, path string) ([]domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pages(path, []string{stripMarkdown(string(b))}), nil
}

// stripMarkdown keeps the readable text, including fenced code contents.
func stripMarkdown(s string) string {
	s = mdCodeFence.ReplaceAllString(s, "")
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "$2")
	s = mdBlockquote.ReplaceAllString(s, "")
	s = mdRule.ReplaceAllString(s, "")
	s = mdBullet.ReplaceAllString(s, "")
	s = mdBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// loadJSON re-indents the document so keys and values tokenise as text.
func loadJSON(_ context.Context, path string) ([]domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return nil, fmt.Errorf("parse json failed: %w", err)
	}
	return pages(path, []string{out.String()}), nil
}

// loadCSV yields one document per data row as "header: value" lines.
func loadCSV(_ context.Context, path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header failed: %w", err)
	}

	var rows []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d failed: %w", len(rows)+1, err)
		}
		var sb strings.Builder
		for i, v := range record {
			key := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				key = strings.TrimSpace(header[i])
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(key)
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(v))
		}
		rows = append(rows, sb.String())
	}
	return pages(path, rows), nil
}

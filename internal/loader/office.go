package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"applicant-rag/internal/domain"
)

// loadDOCX reads word/document.xml; a .docx has no stable page notion so the
// whole body becomes one document.
func loadDOCX(_ context.Context, p string) ([]domain.Document, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open docx failed: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		text, err := zipEntryText(f)
		if err != nil {
			return nil, err
		}
		return pages(p, []string{text}), nil
	}
	return nil, errors.New("docx has no word/document.xml")
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// loadPPTX yields one document per slide, in slide order.
func loadPPTX(_ context.Context, p string) ([]domain.Document, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open pptx failed: %w", err)
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, f: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		text, err := zipEntryText(s.f)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return pages(p, texts), nil
}

func zipEntryText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s failed: %w", path.Base(f.Name), err)
	}
	defer rc.Close()
	return ooxmlText(rc)
}

// ooxmlText collects <w:t>/<a:t> runs, breaking lines at paragraph ends.
func ooxmlText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb   strings.Builder
		inT  bool
		line strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse office xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inT = true
			case "tab":
				line.WriteByte('\t')
			case "br":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inT = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					if sb.Len() > 0 {
						sb.WriteByte('\n')
					}
					sb.WriteString(s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inT {
				line.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(line.String()); s != "" {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// loadXLSX yields one document per sheet with tab separated cells.
func loadXLSX(_ context.Context, p string) ([]domain.Document, error) {
	f, err := excelize.OpenFile(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx failed: %w", err)
	}
	defer f.Close()

	var texts []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s failed: %w", sheet, err)
		}
		var sb strings.Builder
		sb.WriteString(sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteByte('\n')
			sb.WriteString(line)
		}
		if len(rows) == 0 {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, sb.String())
	}
	return pages(p, texts), nil
}

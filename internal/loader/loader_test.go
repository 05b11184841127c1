package loader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func writeZip(t *testing.T, name string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, body := range entries {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestLoadText(t *testing.T) {
	r := NewRegistry()
	p := writeFile(t, "notes.txt", "hello applicant")

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello applicant", docs[0].Text)
	assert.Equal(t, p, docs[0].Metadata.SourceFile)
	assert.Equal(t, 1, docs[0].Metadata.Page)
}

func TestLoadMarkdownStripsSyntax(t *testing.T) {
	r := NewRegistry()
	p := writeFile(t, "cv.md", "# Experience\n\n**Senior** engineer at [Acme](https://acme.test)\n\n- Go\n- SQL\n")

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Experience\n\nSenior engineer at Acme\n\nGo\nSQL", docs[0].Text)
}

func TestLoadCSVOneDocumentPerRow(t *testing.T) {
	r := NewRegistry()
	p := writeFile(t, "reviews.csv", "reviewer,score\nalice,5\nbob,4,extra\n")

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "reviewer: alice\nscore: 5", docs[0].Text)
	assert.Equal(t, "reviewer: bob\nscore: 4\ncolumn_3: extra", docs[1].Text)
	assert.Equal(t, 2, docs[1].Metadata.Page)
}

func TestLoadJSON(t *testing.T) {
	r := NewRegistry()

	docs, err := r.Load(context.Background(), writeFile(t, "a.json", `{"award":"best paper"}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, `"award": "best paper"`)

	_, err = r.Load(context.Background(), writeFile(t, "b.json", `{"award":`))
	assert.Error(t, err)
}

func TestLoadHTMLSkipsScripts(t *testing.T) {
	r := NewRegistry()
	p := writeFile(t, "page.html", `<html><head><title>t</title><style>p{}</style></head>
<body><h1>Awards</h1><p>Best   paper 2023</p><script>alert(1)</script><p>Dean's list</p></body></html>`)

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Awards\nBest paper 2023\nDean's list", docs[0].Text)
}

func TestLoadXML(t *testing.T) {
	r := NewRegistry()
	p := writeFile(t, "feedback.xml", `<feedback><item>clear writing</item><item> strong math </item></feedback>`)

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "clear writing\nstrong math", docs[0].Text)
}

func TestLoadDOCX(t *testing.T) {
	r := NewRegistry()
	p := writeZip(t, "letter.docx", map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>Dear</w:t></w:r><w:r><w:t xml:space="preserve"> committee,</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>I recommend her.</w:t></w:r></w:p></w:body></w:document>`,
	})

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Dear committee,\nI recommend her.", docs[0].Text)
}

func TestLoadPPTXOrdersSlides(t *testing.T) {
	r := NewRegistry()
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	p := writeZip(t, "talk.pptx", map[string]string{
		"ppt/slides/slide10.xml": slide("ten"),
		"ppt/slides/slide2.xml":  slide("two"),
		"ppt/slides/slide1.xml":  slide("one"),
	})

	docs, err := r.Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "one", docs[0].Text)
	assert.Equal(t, "two", docs[1].Text)
	assert.Equal(t, "ten", docs[2].Text)
	assert.Equal(t, 3, docs[2].Metadata.Page)
}

func TestLoadXLSXOnePerSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "course"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "grade"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "algorithms"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "A"))
	p := filepath.Join(t.TempDir(), "grades.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	docs, err := NewRegistry().Load(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sheet1\ncourse\tgrade\nalgorithms\tA", docs[0].Text)
}

func TestLoadUnknownExtensionFallsBackToText(t *testing.T) {
	docs, err := NewRegistry().Load(context.Background(), writeFile(t, "notes.rst", "plain words"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "plain words", docs[0].Text)
}

func TestLoadErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Load(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = r.Load(context.Background(), writeFile(t, "old.DOC", "binary"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Load(ctx, writeFile(t, "a.txt", "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyFileYieldsNoDocuments(t *testing.T) {
	docs, err := NewRegistry().Load(context.Background(), writeFile(t, "empty.txt", "   \n"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

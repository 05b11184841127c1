package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPagesSkipsUnreadablePage(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	texts := map[int]string{1: "first", 3: "third"}
	pages := collectPages(ctx, 3, func(i int) (string, error) {
		if i == 2 {
			return "", errors.New("malformed page: bad font")
		}
		return texts[i], nil
	})

	assert.Equal(t, []string{"first", "", "third"}, pages)
	assert.Contains(t, buf.String(), `"page":2`)
	assert.Contains(t, buf.String(), "skip unreadable pdf page")
}

func TestExtractPagesEmptyInput(t *testing.T) {
	pages, err := ExtractPages(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, pages)
}

func TestExtractPagesRejectsNonPDF(t *testing.T) {
	_, err := ExtractPages(context.Background(), strings.NewReader("not a pdf"))
	assert.Error(t, err)
}

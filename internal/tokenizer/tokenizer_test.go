package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New(DefaultModel)
	require.NoError(t, err)
	return tok
}

func TestCount(t *testing.T) {
	tok := newTokenizer(t)

	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 1, tok.Count("hello"))
	assert.Greater(t, tok.Count(strings.Repeat("applicant ", 100)), 99)
}

func TestTruncate(t *testing.T) {
	tok := newTokenizer(t)
	text := strings.Repeat("The applicant published twelve peer-reviewed papers. ", 40)

	tests := []struct {
		name string
		max  int
	}{
		{name: "zero", max: 0},
		{name: "one", max: 1},
		{name: "small", max: 17},
		{name: "medium", max: 150},
		{name: "larger than text", max: 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tok.Truncate(text, tt.max)
			assert.True(t, strings.HasPrefix(text, out))
			assert.LessOrEqual(t, tok.Count(out), tt.max)
			assert.Equal(t, out, tok.Truncate(out, tt.max))
		})
	}
}

func TestTruncateMultibyte(t *testing.T) {
	tok := newTokenizer(t)
	text := strings.Repeat("申请人发表了论文 🎓 ", 30)

	for max := 1; max < 40; max++ {
		out := tok.Truncate(text, max)
		require.True(t, strings.HasPrefix(text, out), "max=%d", max)
		require.LessOrEqual(t, tok.Count(out), max, "max=%d", max)
		require.Equal(t, out, tok.Truncate(out, max), "max=%d", max)
	}
}

func TestTruncateKeepsShortText(t *testing.T) {
	tok := newTokenizer(t)
	assert.Equal(t, "short text", tok.Truncate("short text", 10))
}

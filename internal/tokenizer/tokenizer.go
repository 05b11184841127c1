// Package tokenizer counts and truncates text in model tokens. The chunker
// and the context budgeter share one instance so their limits agree.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	DefaultModel    = "gpt-4-turbo"
	fallbackEncoder = "cl100k_base"
)

var loaderOnce sync.Once

type Tokenizer struct {
	model string
	enc   *tiktoken.Tiktoken
}

// New returns a tokenizer for model using the embedded BPE ranks, so no
// network access is needed at runtime.
func New(model string) (*Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoder)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer for %s failed: %w", model, err)
		}
	}
	return &Tokenizer{model: model, enc: enc}, nil
}

func (t *Tokenizer) Model() string {
	return t.model
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.Encode(text))
}

// Truncate keeps the longest token prefix of text that decodes to at most
// max tokens. The result is always a prefix of text and Truncate is
// idempotent for a fixed max.
func (t *Tokenizer) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	tokens := t.Encode(text)
	if len(tokens) <= max {
		return text
	}
	for n := max; n > 0; n-- {
		out := trimPartialRune(t.Decode(tokens[:n]))
		if !strings.HasPrefix(text, out) {
			continue
		}
		if t.Count(out) <= max {
			return out
		}
	}
	return ""
}

// trimPartialRune drops a multi-byte sequence cut by a token boundary.
func trimPartialRune(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// Package budget assembles retrieved chunks into an LLM context that fits
// a token limit.
package budget

import (
	"strings"

	"applicant-rag/internal/domain"
)

const DefaultMaxContextTokens = 120000

type Tokenizer interface {
	Count(text string) int
	Truncate(text string, max int) string
}

type Budgeter struct {
	tok       Tokenizer
	maxTokens int
}

func New(tok Tokenizer, maxTokens int) *Budgeter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &Budgeter{tok: tok, maxTokens: maxTokens}
}

func (b *Budgeter) MaxTokens() int {
	return b.maxTokens
}

// Assemble joins chunk contents with newlines in the given order and keeps
// the longest prefix that fits maxTokens. A non-positive maxTokens uses the
// budgeter's limit.
func (b *Budgeter) Assemble(chunks []domain.Chunk, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = b.maxTokens
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	text := strings.Join(parts, "\n")
	if b.tok.Count(text) <= maxTokens {
		return text
	}
	return b.tok.Truncate(text, maxTokens)
}

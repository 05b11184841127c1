// Package expander rewrites one question into several retrieval queries.
package expander

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"applicant-rag/internal/ai"
)

const (
	RolePrompt = "You are a helpful, respectful and honest assistant. Always answer as helpfully as possible " +
		"and follow ALL given instructions. Do not speculate or make up information. Use bullet points to " +
		"list multiple items using numbers. Break your response into paragraphs for better readability."

	MultiQueryPrompt = "You are an AI language model assistant. Your task is to generate 5 different versions " +
		"of the given user question. The questions will be used to retrieve relevant documents from a vector " +
		"database. By generating multiple perspectives on the user question, your goal is to help the user " +
		"overcome some of the limitations of distance-based similarity search. Provide these alternative " +
		"questions as a numbered list, one per line, in the form \"1. <question>\"."
)

var numbered = regexp.MustCompile(`\d+\.\s+`)

// Cache stores expansions between requests. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, question string) ([]string, bool, error)
	Set(ctx context.Context, question string, queries []string) error
}

type Expander struct {
	llm   ai.Completer
	cache Cache
	log   zerolog.Logger
}

type Option func(*Expander)

func WithCache(c Cache) Option {
	return func(e *Expander) { e.cache = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Expander) { e.log = l }
}

func New(llm ai.Completer, opts ...Option) *Expander {
	e := &Expander{llm: llm, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the alternative phrasings followed by the original question.
func (e *Expander) Expand(ctx context.Context, question string) ([]string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("expand question: %w", ai.ErrEmptyInput)
	}

	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, question)
		if err != nil {
			e.log.Warn().Err(err).Msg("expansion cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	answer, err := e.llm.Complete(ctx, RolePrompt+" "+MultiQueryPrompt, question)
	if err != nil {
		return nil, fmt.Errorf("expand question failed: %w", err)
	}
	queries := append(Parse(answer), question)

	if e.cache != nil {
		if err := e.cache.Set(ctx, question, queries); err != nil {
			e.log.Warn().Err(err).Msg("expansion cache write failed")
		}
	}
	return queries, nil
}

// Parse splits a numbered list answer ("1. ...\n2. ...") into its items.
// An answer without numbering is split on lines instead.
func Parse(answer string) []string {
	var parts []string
	if numbered.MatchString(answer) {
		parts = numbered.Split(answer, -1)
	} else {
		parts = strings.Split(answer, "\n")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package ai holds the embedding and chat-completion providers and the
// gated client every other package talks to.
package ai

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v2"
)

var (
	ErrEmptyInput    = errors.New("provider input is empty")
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider is what a backend (OpenAI, Ollama) implements.
type Provider interface {
	Embedder
	Completer
}

// Retryable reports whether err is a transient provider failure: rate
// limiting, a 5xx, or a transport timeout. Context errors of the caller are
// checked by the caller, not here.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := statusCode(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// RateLimited reports whether the provider answered 429.
func RateLimited(err error) bool {
	code, ok := statusCode(err)
	return ok && code == http.StatusTooManyRequests
}

func statusCode(err error) (int, bool) {
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode, true
	}
	var se api.StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	var he *HTTPStatusError
	if errors.As(err, &he) {
		return he.StatusCode, true
	}
	return 0, false
}

// HTTPStatusError is a provider failure that carries only a status code.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return http.StatusText(e.StatusCode) + ": " + e.Message
}

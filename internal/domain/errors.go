package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInitialization = errors.New("initialization failed")
	ErrInvalidOwnerID = errors.New("invalid owner id")
)

// Component names a dependency constructed at startup.
type Component string

const (
	ComponentLLM           Component = "llm"
	ComponentVectorStore   Component = "vector_store"
	ComponentRateLimiter   Component = "rate_limiter"
	ComponentMetadataStore Component = "metadata_store"
	ComponentCache         Component = "cache"
	ComponentQueue         Component = "queue"
	ComponentTokenizer     Component = "tokenizer"
)

// InitError reports a dependency that could not be constructed. It matches
// ErrInitialization with errors.Is and unwraps to the cause.
type InitError struct {
	Component Component
	Err       error
}

func NewInitError(c Component, err error) *InitError {
	return &InitError{Component: c, Err: err}
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s failed: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}

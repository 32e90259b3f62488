package engine

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned for operations on a session ID that
// does not exist or has expired.
var ErrSessionNotFound = errors.New("engine: session not found")

var errEmptyQuestion = errors.New("question is empty")

// ContextRetrievalError wraps a vector store failure during retrieval.
type ContextRetrievalError struct {
	Namespace string
	Err       error
}

func (e *ContextRetrievalError) Error() string {
	return fmt.Sprintf("retrieving context from %q: %v", e.Namespace, e.Err)
}

func (e *ContextRetrievalError) Unwrap() error { return e.Err }

// ResponseGenerationError wraps an LLM provider failure during answer
// generation.
type ResponseGenerationError struct {
	Provider string
	Err      error
}

func (e *ResponseGenerationError) Error() string {
	return fmt.Sprintf("generating response via %s: %v", e.Provider, e.Err)
}

func (e *ResponseGenerationError) Unwrap() error { return e.Err }

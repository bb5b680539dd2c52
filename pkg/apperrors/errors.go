// Package apperrors defines the pipeline error taxonomy.
package apperrors

import (
	"errors"
	"fmt"
)

// Stage identifies which pipeline stage produced a failure.
type Stage string

const (
	StageTranslation Stage = "translation"
	StageValidation  Stage = "validation"
	StageExecution   Stage = "execution"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConfiguration is startup-fatal: missing credential, empty schema.
	KindConfiguration Kind = "configuration"
	// KindUpstream is a model-service transport/auth/rate-limit failure.
	// Eligible for bounded retries at the orchestrator level.
	KindUpstream Kind = "upstream"
	// KindTranslation means the model responded but no usable statement
	// could be extracted. Never retried.
	KindTranslation Kind = "translation"
	// KindUnsafeQuery is a validation rejection. Never retried.
	KindUnsafeQuery Kind = "unsafe_query"
	// KindExecution is a database-level failure or timeout.
	KindExecution Kind = "execution"
)

var (
	ErrEmptySchema      = errors.New("schema descriptor is empty")
	ErrMissingLLMAPIKey = errors.New("LLM API key not configured")
)

// PipelineError wraps a component failure with its stage and kind so the
// transport layer can map it to a status and a generic message without
// leaking internal detail.
type PipelineError struct {
	Stage   Stage
	Kind    Kind
	Message string // safe for callers; never contains rejected SQL or driver detail
	Err     error  // underlying cause, for logs only
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Stage, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Stage, e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds a PipelineError for the given stage and kind.
func NewPipelineError(stage Stage, kind Kind, message string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Message: message, Err: err}
}

// AsPipelineError extracts a *PipelineError from an error chain.
// Returns nil if the chain contains none.
func AsPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

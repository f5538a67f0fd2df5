package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/diegoturueno/provokers-tool/internal/llm"
	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/normalize"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// ErrorKind classifies a failed phase run.
type ErrorKind string

const (
	KindValidation            ErrorKind = "validation"
	KindPreconditionFailed    ErrorKind = "precondition_failed"
	KindModelInvocationFailed ErrorKind = "model_invocation_failed"
	KindMalformedResponse     ErrorKind = "malformed_response"
	KindInvalidShape          ErrorKind = "invalid_shape"
	KindTemplateNotFound      ErrorKind = "template_not_found"
	KindNotFound              ErrorKind = "not_found"
	KindInternal              ErrorKind = "internal"
)

// Error is the structured failure of a phase run.
type Error struct {
	Kind    ErrorKind    `json:"kind"`
	Phase   models.Phase `json:"phase,omitempty"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// precondition builds the error returned when upstream data is missing.
func precondition(phase models.Phase, format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionFailed, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

// asError maps any error from a phase run onto an *Error.
func asError(phase models.Phase, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Phase == "" {
			pe.Phase = phase
		}
		return pe
	}

	kind := KindInternal
	switch {
	case errors.Is(err, storage.ErrValidation):
		kind = KindValidation
	case errors.Is(err, storage.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, prompt.ErrTemplateNotFound):
		kind = KindTemplateNotFound
	case errors.Is(err, normalize.ErrMalformedResponse):
		kind = KindMalformedResponse
	case errors.Is(err, normalize.ErrInvalidShape), errors.Is(err, normalize.ErrInvalidRecord):
		kind = KindInvalidShape
	case errors.Is(err, llm.ErrTransport), errors.Is(err, llm.ErrAuth), errors.Is(err, llm.ErrTimeout),
		errors.Is(err, llm.ErrUnknownProvider):
		kind = KindModelInvocationFailed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindModelInvocationFailed
	}
	return &Error{Kind: kind, Phase: phase, Message: err.Error(), Err: err}
}

// modelError wraps a Generator failure. The message is kept verbatim.
func modelError(phase models.Phase, err error) *Error {
	return &Error{Kind: KindModelInvocationFailed, Phase: phase, Message: err.Error(), Err: err}
}

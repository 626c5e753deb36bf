package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindFileNotFound          ErrorKind = "FileNotFound"
	KindUnsupportedFormat     ErrorKind = "UnsupportedFormat"
	KindEmptyExtraction       ErrorKind = "EmptyExtraction"
	KindExtractionFailed      ErrorKind = "ExtractionFailed"
	KindNoChunksProduced      ErrorKind = "NoChunksProduced"
	KindInvalidConfig         ErrorKind = "InvalidConfiguration"
	KindIndexConnection       ErrorKind = "IndexConnectionError"
	KindIndexWrite            ErrorKind = "IndexWriteError"
	KindRetrieverConstruction ErrorKind = "RetrieverConstructionError"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageRead      Stage = "read"
	StageSplit     Stage = "split"
	StageStore     Stage = "store"
	StageRetriever Stage = "retriever"
)

// PipelineError is the typed failure every stage returns.
// Message is user facing and is reported verbatim.
type PipelineError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *PipelineError) Error() string {
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError builds a PipelineError with a formatted message.
func NewError(stage Stage, kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError attaches cause to a new PipelineError. The cause's text is
// appended to the message so the user sees why the stage failed.
func WrapError(stage Stage, kind ErrorKind, cause error, format string, args ...any) *PipelineError {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &PipelineError{
		Stage:   stage,
		Kind:    kind,
		Message: msg,
		Err:     cause,
	}
}

// AsPipelineError unwraps err into a PipelineError if it carries one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the error kind of err, or "" if err is not a PipelineError.
func KindOf(err error) ErrorKind {
	if pe, ok := AsPipelineError(err); ok {
		return pe.Kind
	}
	return ""
}

package usecase

import (
	"errors"
	"fmt"
)

// Error kinds attached to stage failures.
var (
	ErrSource           = errors.New("source error")
	ErrFetch            = errors.New("fetch error")
	ErrEnrichment       = errors.New("enrichment error")
	ErrEnrichmentFormat = errors.New("enrichment format error")
	ErrSink             = errors.New("sink error")
)

// StageError is the failure of one stage for one item. It unwraps to both
// its kind and its cause.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Kind == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageError(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

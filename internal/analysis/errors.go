package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies why a run stopped.
type Kind int

const (
	KindUnknown Kind = iota
	// KindFetch covers network failures and unusable API responses.
	KindFetch
	// KindSchema covers missing columns and tables that cannot be merged.
	KindSchema
	// KindEmpty means a fetch returned no tracts.
	KindEmpty
	// KindValidation means the strict validation policy rejected the data.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindSchema:
		return "schema"
	case KindEmpty:
		return "empty"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a stage failure tagged with its kind.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func stageError(kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

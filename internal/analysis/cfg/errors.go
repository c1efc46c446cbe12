package cfg

import (
	"errors"
	"fmt"
	"go/token"
)

var (
	ErrBreakOutsideTarget    = errors.New("break is not inside a loop, switch or labeled statement")
	ErrContinueOutsideLoop   = errors.New("continue is not inside a loop")
	ErrUnknownLabel          = errors.New("undefined label")
	ErrContinueNonLoop       = errors.New("continue label does not name a loop")
	ErrDuplicateLabel        = errors.New("label already defined")
	ErrMisplacedFallthrough  = errors.New("fallthrough statement out of place")
	ErrNilCondition          = errors.New("missing condition")
	ErrNilExpression         = errors.New("missing expression")
	ErrInvalidAssignTarget   = errors.New("cannot assign to expression")
	ErrUnsupportedStatement  = errors.New("unsupported statement")
	ErrUnsupportedExpression = errors.New("unsupported expression")
	ErrMalformedGraph        = errors.New("malformed control flow graph")
)

// BuildError reports a construct the builder cannot translate. No graph is
// produced when one occurs.
type BuildError struct {
	Pos  token.Pos
	Kind error
	Msg  string
}

func (e *BuildError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

func (e *BuildError) Unwrap() error { return e.Kind }

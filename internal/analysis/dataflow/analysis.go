package dataflow

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
)

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Ordering selects how the worklist picks the next block.
type Ordering int

const (
	// OrderDepthFirst visits blocks in reverse postorder for forward
	// analyses and in postorder for backward ones.
	OrderDepthFirst Ordering = iota
	// OrderFIFO visits blocks in the order they were queued.
	OrderFIFO
)

// DefaultWidenAfter is the number of input changes a loop header takes
// by plain join before widening starts.
const DefaultWidenAfter = 1

// Config controls a run of the engine. The zero value runs a forward
// analysis in depth-first order with default widening and no limit.
type Config struct {
	Direction Direction
	// WidenAfter is the number of input changes at a loop header before
	// the engine widens. Zero means DefaultWidenAfter and a negative
	// value disables widening.
	WidenAfter int
	// MaxIterations bounds the number of block visits. Zero means no
	// bound.
	MaxIterations int
	Ordering      Ordering
	Logger        *zap.Logger
}

func (c Config) widenAfter() int {
	if c.WidenAfter == 0 {
		return DefaultWidenAfter
	}
	return c.WidenAfter
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// ErrIterationLimit is matched by errors.Is for every IterationLimitError.
var ErrIterationLimit = errors.New("dataflow: iteration limit exceeded")

// IterationLimitError reports an analysis stopped by Config.MaxIterations.
type IterationLimitError struct {
	Limit int
	// Block is the block that would have been visited next.
	Block int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("dataflow: no fixpoint after %d block visits (next block b%d)", e.Limit, e.Block)
}

func (e *IterationLimitError) Is(target error) bool { return target == ErrIterationLimit }

// TransferError wraps an error returned by a transfer function.
type TransferError struct {
	Node  *cfg.Node
	Block int
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("dataflow: transfer failed at %s in block b%d: %v", e.Node, e.Block, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Run computes the fixpoint of tf over g.
//
// A forward analysis starts from initial at the entry block. A backward
// analysis starts from initial at both exit blocks; use RunBackward to
// seed them separately.
func Run[S Store[S]](g *cfg.CFG, tf TransferFunction[S], initial S, conf Config) (*Result[S], error) {
	if conf.Direction == Backward {
		return RunBackward(g, tf, initial, initial.Copy(), conf)
	}
	e := newEngine(g, tf, conf)
	e.seed(g.Entry().ID(), initial)
	if err := e.solve(e.visitForward); err != nil {
		return nil, err
	}
	return e.result(), nil
}

// RunBackward computes the fixpoint of a backward analysis seeded with
// exit at the regular exit and with excExit at the exceptional exit.
func RunBackward[S Store[S]](g *cfg.CFG, tf TransferFunction[S], exit, excExit S, conf Config) (*Result[S], error) {
	conf.Direction = Backward
	e := newEngine(g, tf, conf)
	e.seed(g.RegularExit().ID(), exit)
	e.seed(g.ExceptionalExit().ID(), excExit)
	if err := e.solve(e.visitBackward); err != nil {
		return nil, err
	}
	return e.result(), nil
}

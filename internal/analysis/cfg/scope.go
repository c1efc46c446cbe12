package cfg

import "github.com/gnolang/flowlint/internal/syntax"

type frameKind int

const (
	loopFrame frameKind = iota
	switchFrame
	labelFrame
	catchFrame
	finallyFrame
)

// frame is one enclosing construct that jumps or exceptions can target.
type frame struct {
	kind  frameKind
	label string

	breakTarget    *Block
	continueTarget *Block // loops only

	// next case body of the enclosing switch, nil in the last case
	fallthroughTarget *Block

	// catchFrame
	catches  []*syntax.CatchClause
	handlers []*Block

	// finallyFrame: the finally body is copied once per exception type that
	// leaves the protected region. Copies are allocated on first use.
	finally    *syntax.BlockStmt
	excFinally map[string]*Block
	excOrder   []string
}

// scope is the stack of enclosing frames, innermost last.
type scope struct {
	frames []*frame
}

func (s *scope) push(f *frame) { s.frames = append(s.frames, f) }

func (s *scope) pop() { s.frames = s.frames[:len(s.frames)-1] }

// outer returns a scope holding only the frames below index i.
func (s *scope) outer(i int) *scope {
	return &scope{frames: append([]*frame(nil), s.frames[:i]...)}
}

func (s *scope) hasLabel(label string) bool {
	for _, f := range s.frames {
		if f.label == label {
			return true
		}
	}
	return false
}

// breakTarget returns the index of the frame an unlabeled or labeled break
// leaves, or -1.
func (s *scope) breakTarget(label string) int {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if label == "" {
			if f.kind == loopFrame || f.kind == switchFrame {
				return i
			}
			continue
		}
		if f.label == label && f.breakTarget != nil {
			return i
		}
	}
	return -1
}

// continueTarget returns the index of the loop frame a continue restarts.
// The returned kind error is nil on success.
func (s *scope) continueTarget(label string) (int, error) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if label == "" {
			if f.kind == loopFrame {
				return i, nil
			}
			continue
		}
		if f.label == label {
			if f.kind != loopFrame {
				return -1, ErrContinueNonLoop
			}
			return i, nil
		}
	}
	if label == "" {
		return -1, ErrContinueOutsideLoop
	}
	return -1, ErrUnknownLabel
}

// switchCase returns the innermost frame if it is a switch, else nil.
func (s *scope) switchCase() *frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.kind == labelFrame {
			continue
		}
		if f.kind == switchFrame {
			return f
		}
		return nil
	}
	return nil
}

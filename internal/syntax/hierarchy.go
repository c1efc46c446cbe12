package syntax

import "fmt"

// Well-known exception types.
const (
	AnyException       = "any"
	PanicException     = "panic"
	RuntimeError       = "runtime.Error"
	DivideError        = "runtime.DivideError"
	NilError           = "runtime.NilError"
	IndexError         = "runtime.IndexError"
	TypeAssertionError = "runtime.TypeAssertionError"
)

// Hierarchy is a single-rooted tree of exception type names used to decide
// whether a catch clause definitely or possibly handles a thrown type.
// Unknown names are treated as direct children of the root.
type Hierarchy struct {
	parent map[string]string
}

// NewHierarchy returns the default hierarchy:
//
//	any
//	├── panic
//	└── runtime.Error
//	    ├── runtime.DivideError
//	    ├── runtime.NilError
//	    ├── runtime.IndexError
//	    └── runtime.TypeAssertionError
func NewHierarchy() *Hierarchy {
	h := &Hierarchy{parent: make(map[string]string)}
	h.parent[PanicException] = AnyException
	h.parent[RuntimeError] = AnyException
	for _, t := range []string{DivideError, NilError, IndexError, TypeAssertionError} {
		h.parent[t] = RuntimeError
	}
	return h
}

// Declare adds typ as a child of parent.
func (h *Hierarchy) Declare(typ, parent string) error {
	if typ == AnyException {
		return fmt.Errorf("cannot redeclare root exception type %q", typ)
	}
	if h.IsSubtype(parent, typ) {
		return fmt.Errorf("declaring %q under %q would create a cycle", typ, parent)
	}
	h.parent[typ] = parent
	return nil
}

// Parent returns the direct supertype of typ. The root has no parent.
func (h *Hierarchy) Parent(typ string) (string, bool) {
	if typ == AnyException {
		return "", false
	}
	if p, ok := h.parent[typ]; ok {
		return p, true
	}
	return AnyException, true
}

// IsSubtype reports whether sub equals super or descends from it.
func (h *Hierarchy) IsSubtype(sub, super string) bool {
	for t := sub; ; {
		if t == super {
			return true
		}
		p, ok := h.Parent(t)
		if !ok {
			return false
		}
		t = p
	}
}

// Depth returns the distance of typ from the root.
func (h *Hierarchy) Depth(typ string) int {
	d := 0
	for t := typ; ; d++ {
		p, ok := h.Parent(t)
		if !ok {
			return d
		}
		t = p
	}
}

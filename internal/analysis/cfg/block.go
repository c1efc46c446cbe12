package cfg

import (
	"strconv"
	"strings"
)

// BlockKind tags the shape of a basic block's terminator.
type BlockKind int

const (
	// RegularBlock holds a straight-line node sequence and one successor.
	RegularBlock BlockKind = iota
	// ConditionalBlock holds no nodes. It branches on the boolean value
	// computed last by its single predecessor.
	ConditionalBlock
	// ExceptionBlock holds exactly one node that may throw. It has at most
	// one normal successor and one exceptional successor per caught type.
	ExceptionBlock
	EntryBlock
	RegularExitBlock
	ExceptionalExitBlock
)

func (k BlockKind) String() string {
	switch k {
	case RegularBlock:
		return "regular"
	case ConditionalBlock:
		return "conditional"
	case ExceptionBlock:
		return "exception"
	case EntryBlock:
		return "entry"
	case RegularExitBlock:
		return "exit"
	case ExceptionalExitBlock:
		return "exceptional-exit"
	default:
		return "BlockKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// FlowRule selects which store of a then/else pair travels along an edge
// and which slot of the target it fills.
type FlowRule int

const (
	// EachToEach sends the then store to the then slot and the else store
	// to the else slot.
	EachToEach FlowRule = iota
	// ThenToBoth sends the then store to both slots.
	ThenToBoth
	// ElseToBoth sends the else store to both slots.
	ElseToBoth
	// ThenToThen sends the then store to the then slot only.
	ThenToThen
	// ElseToElse sends the else store to the else slot only.
	ElseToElse
)

func (r FlowRule) String() string {
	switch r {
	case EachToEach:
		return "each-to-each"
	case ThenToBoth:
		return "then-to-both"
	case ElseToBoth:
		return "else-to-both"
	case ThenToThen:
		return "then-to-then"
	case ElseToElse:
		return "else-to-else"
	default:
		return "FlowRule(" + strconv.Itoa(int(r)) + ")"
	}
}

// EdgeKind distinguishes the outgoing edges of a block.
type EdgeKind int

const (
	NormalEdge EdgeKind = iota
	ThenEdge
	ElseEdge
	ExceptionalEdge
)

func (k EdgeKind) String() string {
	switch k {
	case NormalEdge:
		return "normal"
	case ThenEdge:
		return "then"
	case ElseEdge:
		return "else"
	case ExceptionalEdge:
		return "exceptional"
	default:
		return "EdgeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Edge is one outgoing control transfer of a block.
type Edge struct {
	From, To  int
	Kind      EdgeKind
	Rule      FlowRule
	Exception string // set on exceptional edges
}

func (e Edge) String() string {
	var sb strings.Builder
	sb.WriteString("b" + strconv.Itoa(e.From) + " -> b" + strconv.Itoa(e.To))
	switch e.Kind {
	case ThenEdge, ElseEdge:
		sb.WriteString(" [" + e.Kind.String() + "]")
	case ExceptionalEdge:
		sb.WriteString(" [" + e.Exception + "]")
	}
	return sb.String()
}

// ExceptionalSuccessor is the handler reached when the node of an
// exception block throws Type.
type ExceptionalSuccessor struct {
	Type   string
	Target int
}

const noBlock = -1

// Block is a basic block of a control flow graph.
type Block struct {
	id    int
	kind  BlockKind
	nodes []*Node

	succ     int
	succRule FlowRule

	thenSucc, elseSucc int
	thenRule, elseRule FlowRule

	exceptional []ExceptionalSuccessor

	preds       []int
	reachable   bool
	order       int
	loopHeader  bool
	naturalLoop bool
}

func newBlock(id int, kind BlockKind) *Block {
	return &Block{
		id:       id,
		kind:     kind,
		succ:     noBlock,
		thenSucc: noBlock,
		elseSucc: noBlock,
		thenRule: ThenToBoth,
		elseRule: ElseToBoth,
	}
}

func (b *Block) ID() int         { return b.id }
func (b *Block) Kind() BlockKind { return b.kind }
func (b *Block) Nodes() []*Node  { return b.nodes }
func (b *Block) Preds() []int    { return b.preds }

// Reachable reports whether control can reach the block from the entry.
func (b *Block) Reachable() bool { return b.reachable }

// Order returns the reverse postorder number of the block.
func (b *Block) Order() int { return b.order }

// IsLoopHeader reports whether the block is the target of a retreating edge.
func (b *Block) IsLoopHeader() bool { return b.loopHeader }

// IsNaturalLoopHeader reports whether the block dominates the source of one
// of its retreating edges, that is whether it heads a natural loop.
func (b *Block) IsNaturalLoopHeader() bool { return b.naturalLoop }

// LastNode returns the final node of the block or nil if it is empty.
func (b *Block) LastNode() *Node {
	if len(b.nodes) == 0 {
		return nil
	}
	return b.nodes[len(b.nodes)-1]
}

// Successor returns the normal successor of a regular, exception or entry
// block.
func (b *Block) Successor() (int, bool) {
	return b.succ, b.succ != noBlock
}

// FlowRule returns the rule of the normal successor edge.
func (b *Block) FlowRule() FlowRule { return b.succRule }

// Then returns the successor taken when the condition holds.
func (b *Block) Then() (int, bool) { return b.thenSucc, b.thenSucc != noBlock }

// Else returns the successor taken when the condition fails.
func (b *Block) Else() (int, bool) { return b.elseSucc, b.elseSucc != noBlock }

func (b *Block) ThenRule() FlowRule { return b.thenRule }
func (b *Block) ElseRule() FlowRule { return b.elseRule }

// Exceptional returns the exceptional successors, most specific type first.
func (b *Block) Exceptional() []ExceptionalSuccessor { return b.exceptional }

// IsExit reports whether the block is one of the two exit blocks.
func (b *Block) IsExit() bool {
	return b.kind == RegularExitBlock || b.kind == ExceptionalExitBlock
}

// Edges returns all outgoing edges: the normal edge, then the then and else
// edges and finally the exceptional edges in specificity order.
func (b *Block) Edges() []Edge {
	var out []Edge
	if b.succ != noBlock {
		out = append(out, Edge{From: b.id, To: b.succ, Kind: NormalEdge, Rule: b.succRule})
	}
	if b.thenSucc != noBlock {
		out = append(out, Edge{From: b.id, To: b.thenSucc, Kind: ThenEdge, Rule: b.thenRule})
	}
	if b.elseSucc != noBlock {
		out = append(out, Edge{From: b.id, To: b.elseSucc, Kind: ElseEdge, Rule: b.elseRule})
	}
	for _, ex := range b.exceptional {
		out = append(out, Edge{From: b.id, To: ex.Target, Kind: ExceptionalEdge, Rule: EachToEach, Exception: ex.Type})
	}
	return out
}

// Succs returns the distinct successor ids in edge order.
func (b *Block) Succs() []int {
	var out []int
	seen := make(map[int]bool)
	for _, e := range b.Edges() {
		if !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString("b" + strconv.Itoa(b.id) + " (" + b.kind.String())
	if !b.reachable {
		sb.WriteString(", unreachable")
	}
	if b.loopHeader {
		sb.WriteString(", loop header")
	}
	sb.WriteString(")")
	return sb.String()
}

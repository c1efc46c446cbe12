package cfg

import (
	"fmt"
	"go/ast"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gnolang/flowlint/internal/frontend"
	"github.com/gnolang/flowlint/internal/syntax"
)

// CFG is the control flow graph of one procedure. Blocks and nodes live in
// arenas indexed by their ids; edges refer to blocks by id.
type CFG struct {
	Name string

	proc    *syntax.Procedure
	blocks  []*Block
	nodes   []*Node
	returns []*Node
	byTree  map[syntax.Node][]*Node

	entry, exit, excExit int

	rpo       []int
	idom      []int
	backEdges [][2]int
	reducible bool
}

// FromFunc lowers a Go function declaration and builds its graph.
func FromFunc(fn *ast.FuncDecl, opts Options) (*CFG, error) {
	proc, err := frontend.Lower(fn)
	if err != nil {
		return nil, err
	}
	return Build(proc, opts)
}

// Procedure returns the tree the graph was built from.
func (g *CFG) Procedure() *syntax.Procedure { return g.proc }

func (g *CFG) Entry() *Block           { return g.blocks[g.entry] }
func (g *CFG) RegularExit() *Block     { return g.blocks[g.exit] }
func (g *CFG) ExceptionalExit() *Block { return g.blocks[g.excExit] }

// Blocks returns all blocks in id order, including unreachable ones.
func (g *CFG) Blocks() []*Block { return g.blocks }

// Block returns the block with the given id.
func (g *CFG) Block(id int) *Block {
	if id < 0 || id >= len(g.blocks) {
		return nil
	}
	return g.blocks[id]
}

// Nodes returns all nodes in id order.
func (g *CFG) Nodes() []*Node { return g.nodes }

func (g *CFG) Node(id int) *Node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

func (g *CFG) Preds(b *Block) []*Block {
	out := make([]*Block, len(b.preds))
	for i, id := range b.preds {
		out[i] = g.blocks[id]
	}
	return out
}

func (g *CFG) Succs(b *Block) []*Block {
	ids := b.Succs()
	out := make([]*Block, len(ids))
	for i, id := range ids {
		out[i] = g.blocks[id]
	}
	return out
}

// NodesFor returns the nodes generated from a tree element. Statements
// inside a finally body yield one node per copy of the body.
func (g *CFG) NodesFor(tree syntax.Node) []*Node { return g.byTree[tree] }

// ReturnNodes returns the return nodes in source order.
func (g *CFG) ReturnNodes() []*Node { return g.returns }

// DepthFirstOrder returns the blocks in reverse postorder, starting with
// the entry. Blocks unreachable from the entry come last.
func (g *CFG) DepthFirstOrder() []*Block {
	out := make([]*Block, len(g.rpo))
	for i, id := range g.rpo {
		out[i] = g.blocks[id]
	}
	return out
}

func (g *CFG) IsLoopHeader(id int) bool {
	blk := g.Block(id)
	return blk != nil && blk.loopHeader
}

// LoopHeaders returns the targets of retreating edges in depth-first order.
func (g *CFG) LoopHeaders() []*Block {
	var out []*Block
	for _, id := range g.rpo {
		if g.blocks[id].loopHeader {
			out = append(out, g.blocks[id])
		}
	}
	return out
}

// Reducible reports whether every retreating edge among reachable blocks
// is a back edge, i.e. its target dominates its source.
func (g *CFG) Reducible() bool { return g.reducible }

// NaturalLoop returns the blocks of the natural loop headed by header: the
// header plus every block that reaches the source of one of its back edges
// without passing through the header. It is empty when header heads no
// natural loop.
func (g *CFG) NaturalLoop(header int) []int {
	in := make(map[int]bool)
	var work []int
	for _, e := range g.backEdges {
		if e[1] != header {
			continue
		}
		in[header] = true
		if !in[e[0]] {
			in[e[0]] = true
			work = append(work, e[0])
		}
	}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range g.blocks[cur].preds {
			if !in[p] && g.blocks[p].reachable {
				in[p] = true
				work = append(work, p)
			}
		}
	}
	out := maps.Keys(in)
	slices.Sort(out)
	return out
}

// ImmediateDominator returns the closest strict dominator of a reachable
// block. The entry and unreachable blocks have none.
func (g *CFG) ImmediateDominator(id int) (int, bool) {
	if id < 0 || id >= len(g.idom) || g.idom[id] == noBlock {
		return noBlock, false
	}
	return g.idom[id], true
}

// Dominates reports whether every path from the entry to b passes a.
func (g *CFG) Dominates(a, b int) bool {
	if g.Block(b) == nil || !g.blocks[b].reachable {
		return false
	}
	for cur := b; ; {
		if cur == a {
			return true
		}
		next, ok := g.ImmediateDominator(cur)
		if !ok {
			return false
		}
		cur = next
	}
}

// UnreachableBlocks returns the blocks holding code that control never
// reaches from the entry. Exit blocks are not reported.
func (g *CFG) UnreachableBlocks() []*Block {
	var out []*Block
	for _, blk := range g.blocks {
		if !blk.reachable && !blk.IsExit() {
			out = append(out, blk)
		}
	}
	return out
}

func (g *CFG) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cfg %s\n", g.Name)
	for _, blk := range g.blocks {
		sb.WriteString(blk.String())
		sb.WriteString("\n")
		for _, n := range blk.nodes {
			fmt.Fprintf(&sb, "\tn%d: %s\n", n.id, n)
		}
		for _, e := range blk.Edges() {
			fmt.Fprintf(&sb, "\t%s\n", e)
		}
	}
	return sb.String()
}

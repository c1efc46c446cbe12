package cfg

import (
	"fmt"

	"github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

func (g *CFG) finalize() error {
	g.compact(g.removePassThrough())
	g.computePreds()
	g.computeReachability()
	g.computeOrder()
	g.computeDominators()
	g.classifyLoops()
	return g.Validate()
}

// removePassThrough marks empty regular blocks for removal and routes
// their incoming edges to their successor. Blocks reached through an edge
// that fills a single store slot are kept, since dropping them would change
// how the missing slot is filled.
func (g *CFG) removePassThrough() []bool {
	removed := make([]bool, len(g.blocks))
	for changed := true; changed; {
		changed = false
		for _, blk := range g.blocks {
			if removed[blk.id] || blk.kind != RegularBlock || len(blk.nodes) > 0 {
				continue
			}
			if blk.succ == blk.id {
				continue
			}
			if g.bypass(blk, removed) {
				removed[blk.id] = true
				changed = true
			}
		}
	}
	return removed
}

func (g *CFG) bypass(blk *Block, removed []bool) bool {
	incoming := 0
	for _, p := range g.blocks {
		if removed[p.id] {
			continue
		}
		if p.thenSucc == blk.id && p.thenRule == ThenToThen {
			return false
		}
		if p.elseSucc == blk.id && p.elseRule == ElseToElse {
			return false
		}
		for _, e := range p.Edges() {
			if e.To == blk.id {
				incoming++
			}
		}
	}
	// a block left open after a rethrow has neither edges in nor out
	if blk.succ == noBlock {
		return incoming == 0
	}

	to := blk.succ
	for _, p := range g.blocks {
		if removed[p.id] || p.id == blk.id {
			continue
		}
		if p.succ == blk.id {
			p.succ = to
		}
		if p.thenSucc == blk.id {
			p.thenSucc = to
		}
		if p.elseSucc == blk.id {
			p.elseSucc = to
		}
		for i := range p.exceptional {
			if p.exceptional[i].Target == blk.id {
				p.exceptional[i].Target = to
			}
		}
	}
	return true
}

// compact drops removed blocks and renumbers the rest in creation order.
func (g *CFG) compact(removed []bool) {
	remap := make([]int, len(g.blocks))
	kept := make([]*Block, 0, len(g.blocks))
	for _, blk := range g.blocks {
		if removed[blk.id] {
			remap[blk.id] = noBlock
			continue
		}
		remap[blk.id] = len(kept)
		kept = append(kept, blk)
	}
	fix := func(id int) int {
		if id == noBlock {
			return noBlock
		}
		return remap[id]
	}
	for _, blk := range kept {
		blk.id = remap[blk.id]
		blk.succ = fix(blk.succ)
		blk.thenSucc = fix(blk.thenSucc)
		blk.elseSucc = fix(blk.elseSucc)
		for i := range blk.exceptional {
			blk.exceptional[i].Target = fix(blk.exceptional[i].Target)
		}
		for _, n := range blk.nodes {
			n.block = blk.id
		}
	}
	g.entry, g.exit, g.excExit = remap[g.entry], remap[g.exit], remap[g.excExit]
	g.blocks = kept
}

func (g *CFG) computePreds() {
	for _, blk := range g.blocks {
		for _, s := range blk.Succs() {
			g.blocks[s].preds = append(g.blocks[s].preds, blk.id)
		}
	}
}

func (g *CFG) successorGraph() *graph.Mutable {
	gr := graph.New(len(g.blocks))
	for _, blk := range g.blocks {
		for _, s := range blk.Succs() {
			gr.Add(blk.id, s)
		}
	}
	return gr
}

func (g *CFG) computeReachability() {
	g.blocks[g.entry].reachable = true
	graph.BFS(g.successorGraph(), g.entry, func(_, w int, _ int64) {
		g.blocks[w].reachable = true
	})
}

// computeOrder numbers the blocks in reverse postorder of a depth-first
// search from the entry, followed by searches from the remaining blocks.
// Edges to a block still on the search stack are retreating edges.
func (g *CFG) computeOrder() {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.blocks))
	g.rpo = g.rpo[:0]
	g.backEdges = g.backEdges[:0]

	type item struct {
		id    int
		succs []int
		next  int
	}
	visit := func(root int) {
		var post []int
		color[root] = gray
		stack := []*item{{id: root, succs: g.blocks[root].Succs()}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next < len(top.succs) {
				s := top.succs[top.next]
				top.next++
				switch color[s] {
				case white:
					color[s] = gray
					stack = append(stack, &item{id: s, succs: g.blocks[s].Succs()})
				case gray:
					g.backEdges = append(g.backEdges, [2]int{top.id, s})
				}
				continue
			}
			color[top.id] = black
			post = append(post, top.id)
			stack = stack[:len(stack)-1]
		}
		for i := len(post) - 1; i >= 0; i-- {
			g.rpo = append(g.rpo, post[i])
		}
	}

	visit(g.entry)
	for _, blk := range g.blocks {
		if color[blk.id] == white {
			visit(blk.id)
		}
	}
	for i, id := range g.rpo {
		g.blocks[id].order = i
	}
}

func (g *CFG) computeDominators() {
	dg := simple.NewDirectedGraph()
	for _, blk := range g.blocks {
		dg.AddNode(simple.Node(blk.id))
	}
	for _, blk := range g.blocks {
		for _, s := range blk.Succs() {
			if s != blk.id {
				dg.SetEdge(dg.NewEdge(simple.Node(blk.id), simple.Node(s)))
			}
		}
	}

	tree := flow.Dominators(simple.Node(g.entry), dg)
	g.idom = make([]int, len(g.blocks))
	for _, blk := range g.blocks {
		g.idom[blk.id] = noBlock
		if blk.id == g.entry || !blk.reachable {
			continue
		}
		if d := tree.DominatorOf(int64(blk.id)); d != nil {
			g.idom[blk.id] = int(d.ID())
		}
	}
}

// classifyLoops marks the target of every retreating edge as a loop header,
// since the engine widens there. A header that dominates the source of the
// edge heads a natural loop; a reachable retreating edge whose target does
// not dominate its source makes the graph irreducible.
func (g *CFG) classifyLoops() {
	g.reducible = true
	natural := g.backEdges[:0:0]
	for _, e := range g.backEdges {
		from, header := e[0], e[1]
		g.blocks[header].loopHeader = true
		switch {
		case g.Dominates(header, from):
			g.blocks[header].naturalLoop = true
			natural = append(natural, e)
		case g.blocks[from].reachable:
			g.reducible = false
		}
	}
	g.backEdges = natural
}

// LoopBlocks returns the strongly connected regions of the graph that
// contain a cycle, each as a list of block ids.
func (g *CFG) LoopBlocks() [][]int {
	var out [][]int
	for _, comp := range graph.StrongComponents(g.successorGraph()) {
		if len(comp) > 1 {
			out = append(out, comp)
			continue
		}
		blk := g.blocks[comp[0]]
		for _, s := range blk.Succs() {
			if s == blk.id {
				out = append(out, comp)
				break
			}
		}
	}
	return out
}

// Validate checks the structural invariants of the graph.
func (g *CFG) Validate() error {
	malformed := func(blk *Block, format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrMalformedGraph, blk, fmt.Sprintf(format, args...))
	}

	counts := make(map[BlockKind]int)
	for _, blk := range g.blocks {
		counts[blk.kind]++
		edges := blk.Edges()
		switch blk.kind {
		case RegularExitBlock, ExceptionalExitBlock:
			if len(edges) > 0 {
				return malformed(blk, "exit block has successors")
			}
			continue
		case ConditionalBlock:
			if len(blk.nodes) > 0 || blk.thenSucc == noBlock || blk.elseSucc == noBlock {
				return malformed(blk, "conditional block needs two successors and no nodes")
			}
			for _, p := range blk.preds {
				last := g.blocks[p].LastNode()
				if last == nil || !last.IsBoolean() {
					return malformed(blk, "predecessor b%d does not end in a boolean node", p)
				}
			}
		case ExceptionBlock:
			if len(blk.nodes) != 1 {
				return malformed(blk, "exception block holds %d nodes", len(blk.nodes))
			}
		default:
			if blk.thenSucc != noBlock || blk.elseSucc != noBlock || len(blk.exceptional) > 0 {
				return malformed(blk, "unexpected branch edges")
			}
		}
		if len(edges) == 0 {
			return malformed(blk, "no successors")
		}
		for _, e := range edges {
			if e.To < 0 || e.To >= len(g.blocks) {
				return malformed(blk, "edge to unknown block %d", e.To)
			}
			if e.Kind == ExceptionalEdge && e.Exception == "" {
				return malformed(blk, "exceptional edge without type")
			}
		}
	}
	for _, kind := range []BlockKind{EntryBlock, RegularExitBlock, ExceptionalExitBlock} {
		if counts[kind] != 1 {
			return fmt.Errorf("%w: %d %s blocks", ErrMalformedGraph, counts[kind], kind)
		}
	}
	if !g.blocks[g.entry].reachable {
		return fmt.Errorf("%w: entry not marked reachable", ErrMalformedGraph)
	}
	return nil
}

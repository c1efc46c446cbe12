package dataflow

import (
	"go.uber.org/zap"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
)

// slot holds the then and else halves of a block input. A half is
// missing until some edge fills it.
type slot[S Store[S]] struct {
	then, els        S
	hasThen, hasElse bool
}

func (s *slot[S]) reached() bool { return s.hasThen || s.hasElse }

// input returns the state a block starts from. A missing half is
// replaced by the present one.
func (s *slot[S]) input() TransferInput[S] {
	switch {
	case s.hasThen && s.hasElse:
		if s.then.Equal(s.els) {
			return RegularInput(s.then)
		}
		return ConditionalInput(s.then, s.els)
	case s.hasThen:
		return RegularInput(s.then)
	default:
		return RegularInput(s.els)
	}
}

type engine[S Store[S]] struct {
	g    *cfg.CFG
	tf   TransferFunction[S]
	conf Config
	log  *zap.Logger
	wl   *worklist

	inputs  []slot[S]
	changes []int
	visits  []int
	iters   int

	// indexed by node id, in program order
	before, after []TransferInput[S]
	seen          []bool
	returns       map[int]S
}

func newEngine[S Store[S]](g *cfg.CFG, tf TransferFunction[S], conf Config) *engine[S] {
	keys := make([]int, len(g.Blocks()))
	for _, blk := range g.Blocks() {
		keys[blk.ID()] = blk.Order()
		if conf.Direction == Backward {
			keys[blk.ID()] = -blk.Order()
		}
	}
	return &engine[S]{
		g:       g,
		tf:      tf,
		conf:    conf,
		log:     conf.logger().With(zap.String("cfg", g.Name), zap.Stringer("direction", conf.Direction), zap.Bool("reducible", g.Reducible())),
		wl:      newWorklist(keys, conf.Ordering == OrderFIFO),
		inputs:  make([]slot[S], len(g.Blocks())),
		changes: make([]int, len(g.Blocks())),
		visits:  make([]int, len(g.Blocks())),
		before:  make([]TransferInput[S], len(g.Nodes())),
		after:   make([]TransferInput[S], len(g.Nodes())),
		seen:    make([]bool, len(g.Nodes())),
		returns: make(map[int]S),
	}
}

func (e *engine[S]) seed(id int, s S) {
	e.inputs[id] = slot[S]{then: s.Copy(), els: s.Copy(), hasThen: true, hasElse: true}
	e.changes[id] = 1
	e.wl.add(id)
}

func (e *engine[S]) solve(visit func(*cfg.Block) error) error {
	for !e.wl.empty() {
		id := e.wl.next()
		if e.conf.MaxIterations > 0 && e.iters >= e.conf.MaxIterations {
			e.log.Warn("iteration limit reached", zap.Int("limit", e.conf.MaxIterations), zap.Int("block", id))
			return &IterationLimitError{Limit: e.conf.MaxIterations, Block: id}
		}
		e.iters++
		e.visits[id]++
		if err := visit(e.g.Block(id)); err != nil {
			return err
		}
	}
	e.log.Debug("fixpoint reached", zap.Int("iterations", e.iters))
	return nil
}

// apply runs tf on n and records the stores around it.
func (e *engine[S]) apply(blk *cfg.Block, n *cfg.Node, in TransferInput[S]) (TransferResult[S], error) {
	recorded := in.Copy()
	res, err := e.tf.Visit(n, in)
	if err != nil {
		return res, &TransferError{Node: n, Block: blk.ID(), Err: err}
	}
	out := res.TransferInput.Copy()
	if e.conf.Direction == Forward {
		e.before[n.ID()], e.after[n.ID()] = recorded, out
	} else {
		e.before[n.ID()], e.after[n.ID()] = out, recorded
	}
	e.seen[n.ID()] = true
	if n.Kind() == cfg.ReturnNode {
		e.returns[n.ID()] = e.after[n.ID()].Regular()
	}
	return res, nil
}

// propagate merges out into block to according to rule and queues to if
// its input changed.
func (e *engine[S]) propagate(to int, out TransferInput[S], rule cfg.FlowRule) {
	var (
		then, els        S
		hasThen, hasElse bool
	)
	switch rule {
	case cfg.EachToEach:
		then, els, hasThen, hasElse = out.Then(), out.Else(), true, true
	case cfg.ThenToBoth:
		then, els, hasThen, hasElse = out.Then(), out.Then(), true, true
	case cfg.ElseToBoth:
		then, els, hasThen, hasElse = out.Else(), out.Else(), true, true
	case cfg.ThenToThen:
		then, hasThen = out.Then(), true
	case cfg.ElseToElse:
		els, hasElse = out.Else(), true
	}
	if e.merge(to, then, hasThen, els, hasElse) {
		e.wl.add(to)
	}
}

func (e *engine[S]) merge(to int, then S, hasThen bool, els S, hasElse bool) bool {
	sl := &e.inputs[to]
	widen := e.shouldWiden(to)
	changed := false
	if hasThen {
		if s, ok := e.join(to, sl.then, sl.hasThen, then, widen); ok {
			sl.then, sl.hasThen, changed = s, true, true
		}
	}
	if hasElse {
		if s, ok := e.join(to, sl.els, sl.hasElse, els, widen); ok {
			sl.els, sl.hasElse, changed = s, true, true
		}
	}
	if changed {
		e.changes[to]++
	}
	return changed
}

func (e *engine[S]) shouldWiden(id int) bool {
	after := e.conf.widenAfter()
	return after >= 0 && e.g.IsLoopHeader(id) && e.changes[id] >= after
}

// join returns the new value of one input half and whether it changed.
func (e *engine[S]) join(id int, old S, hasOld bool, in S, widen bool) (S, bool) {
	if !hasOld {
		return in.Copy(), true
	}
	joined := old.LeastUpperBound(in)
	if widen {
		if w, ok := any(joined).(Widener[S]); ok {
			if ce := e.log.Check(zap.DebugLevel, "widening"); ce != nil {
				ce.Write(
					zap.Int("block", id),
					zap.Int("changes", e.changes[id]),
					zap.Bool("natural", e.g.Block(id).IsNaturalLoopHeader()),
					zap.Ints("loop", e.g.NaturalLoop(id)),
				)
			}
			joined = w.Widen(old, e.changes[id])
		}
	}
	if joined.Equal(old) {
		return old, false
	}
	return joined, true
}

func (e *engine[S]) visitForward(blk *cfg.Block) error {
	in := e.inputs[blk.ID()].input().Copy()

	switch blk.Kind() {
	case cfg.EntryBlock, cfg.RegularBlock:
		cur := in
		for _, n := range blk.Nodes() {
			res, err := e.apply(blk, n, cur)
			if err != nil {
				return err
			}
			cur = res.TransferInput
		}
		if succ, ok := blk.Successor(); ok {
			e.propagate(succ, cur, blk.FlowRule())
		}

	case cfg.ExceptionBlock:
		res, err := e.apply(blk, blk.LastNode(), in)
		if err != nil {
			return err
		}
		if succ, ok := blk.Successor(); ok {
			e.propagate(succ, res.TransferInput, cfg.EachToEach)
		}
		for _, ex := range blk.Exceptional() {
			s, ok := res.Exceptional(ex.Type)
			if !ok {
				s = res.Regular()
			}
			e.propagate(ex.Target, RegularInput(s), cfg.EachToEach)
		}

	case cfg.ConditionalBlock:
		if then, ok := blk.Then(); ok {
			e.propagate(then, in, blk.ThenRule())
		}
		if els, ok := blk.Else(); ok {
			e.propagate(els, in, blk.ElseRule())
		}
	}
	return nil
}

func (e *engine[S]) visitBackward(blk *cfg.Block) error {
	cur := e.inputs[blk.ID()].input().Copy()

	nodes := blk.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		res, err := e.apply(blk, nodes[i], cur)
		if err != nil {
			return err
		}
		cur = res.TransferInput
	}

	for _, pid := range blk.Preds() {
		pred := e.g.Block(pid)
		var changed bool
		switch pred.Kind() {
		case cfg.ConditionalBlock:
			// each branch target fills the matching half
			then, _ := pred.Then()
			els, _ := pred.Else()
			s := cur.Regular()
			changed = e.merge(pid, s, then == blk.ID(), s, els == blk.ID())
		case cfg.ExceptionBlock:
			s := cur.Regular()
			changed = e.merge(pid, s, true, s, true)
		default:
			changed = e.merge(pid, cur.Then(), true, cur.Else(), true)
		}
		if changed {
			e.wl.add(pid)
		}
	}
	return nil
}

func (e *engine[S]) result() *Result[S] {
	r := &Result[S]{
		g:          e.g,
		direction:  e.conf.Direction,
		before:     e.before,
		after:      e.after,
		seen:       e.seen,
		blockInput: make([]TransferInput[S], len(e.inputs)),
		reached:    make([]bool, len(e.inputs)),
		visits:     e.visits,
		iterations: e.iters,
		returns:    e.returns,
	}
	for id := range e.inputs {
		if e.inputs[id].reached() {
			r.blockInput[id] = e.inputs[id].input()
			r.reached[id] = true
		}
	}
	return r
}

package dataflow

import "container/heap"

// worklist is a set of block ids. In depth-first mode it pops the block
// with the smallest key; in FIFO mode it pops in insertion order.
type worklist struct {
	fifo   bool
	keys   []int
	items  []int
	queued []bool
}

func newWorklist(keys []int, fifo bool) *worklist {
	return &worklist{
		fifo:   fifo,
		keys:   keys,
		queued: make([]bool, len(keys)),
	}
}

func (w *worklist) Len() int           { return len(w.items) }
func (w *worklist) Less(i, j int) bool { return w.keys[w.items[i]] < w.keys[w.items[j]] }
func (w *worklist) Swap(i, j int)      { w.items[i], w.items[j] = w.items[j], w.items[i] }

func (w *worklist) Push(x any) { w.items = append(w.items, x.(int)) }

func (w *worklist) Pop() any {
	n := len(w.items)
	x := w.items[n-1]
	w.items = w.items[:n-1]
	return x
}

func (w *worklist) add(id int) {
	if w.queued[id] {
		return
	}
	w.queued[id] = true
	if w.fifo {
		w.items = append(w.items, id)
		return
	}
	heap.Push(w, id)
}

func (w *worklist) next() int {
	var id int
	if w.fifo {
		id = w.items[0]
		w.items = w.items[1:]
	} else {
		id = heap.Pop(w).(int)
	}
	w.queued[id] = false
	return id
}

func (w *worklist) empty() bool { return len(w.items) == 0 }

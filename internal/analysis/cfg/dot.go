package cfg

import (
	"fmt"
	"go/token"
	"io"
	"strings"
)

// PrintDot writes the graph in Graphviz dot format. When fset is not nil,
// node labels carry their source line.
func (g *CFG) PrintDot(w io.Writer, fset *token.FileSet) {
	fmt.Fprintf(w, "digraph %q {\n", g.Name)
	fmt.Fprintf(w, "\tnode [shape=box, fontname=\"monospace\"];\n\n")

	for _, blk := range g.blocks {
		attrs := []string{fmt.Sprintf("label=%q", g.dotLabel(blk, fset))}
		switch {
		case blk.kind == ConditionalBlock:
			attrs = append(attrs, "shape=diamond")
		case blk.IsExit() || blk.kind == EntryBlock:
			attrs = append(attrs, "shape=oval")
		}
		if !blk.reachable && !blk.IsExit() {
			attrs = append(attrs, "style=dotted")
		}
		fmt.Fprintf(w, "\tb%d [%s];\n", blk.id, strings.Join(attrs, ", "))
	}
	fmt.Fprintln(w)

	for _, blk := range g.blocks {
		for _, e := range blk.Edges() {
			var attrs []string
			switch e.Kind {
			case ThenEdge, ElseEdge:
				attrs = append(attrs, fmt.Sprintf("label=%q", e.Kind.String()))
			case ExceptionalEdge:
				attrs = append(attrs, fmt.Sprintf("label=%q", e.Exception), "style=dashed")
			}
			if e.Rule != EachToEach && e.Rule != ThenToBoth && e.Rule != ElseToBoth {
				attrs = append(attrs, fmt.Sprintf("taillabel=%q", e.Rule.String()))
			}
			if len(attrs) == 0 {
				fmt.Fprintf(w, "\tb%d -> b%d;\n", e.From, e.To)
				continue
			}
			fmt.Fprintf(w, "\tb%d -> b%d [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		}
	}
	fmt.Fprintln(w, "}")
}

func (g *CFG) dotLabel(blk *Block, fset *token.FileSet) string {
	switch blk.kind {
	case EntryBlock:
		return "ENTRY"
	case RegularExitBlock:
		return "EXIT"
	case ExceptionalExitBlock:
		return "EXCEPTIONAL EXIT"
	}
	lines := []string{fmt.Sprintf("b%d", blk.id)}
	for _, n := range blk.nodes {
		line := fmt.Sprintf("n%d: %s", n.id, n)
		if fset != nil && n.pos.IsValid() {
			line += fmt.Sprintf("  (line %d)", fset.Position(n.pos).Line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

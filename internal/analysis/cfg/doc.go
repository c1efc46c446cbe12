// # Description
//
// Package cfg builds control flow graphs (CFG) for procedures of a small
// structured language with loops, switches, labeled jumps and
// try/catch/finally. Go functions are supported through FromFunc.
//
// ## Control Flow Graph (CFG)
//
// A CFG is a representation, using graph notation, of all paths that might be traversed
// through a program during its execution. In a CFG:
//
//   - Each node in the graph represents a basic block (a straight-line piece of code without any jumps).
//   - The directed edges represent jumps in the control flow.
//
// Blocks hold Nodes, one per evaluation step, in source evaluation order.
// Operations that may throw sit alone in an exception block whose
// exceptional edges are tagged with the thrown type. Boolean values that
// decide control end their block and are followed by a conditional block.
//
// ## Package Functionality
//
//  1. CFG Construction: use `Build` on a syntax.Procedure or `FromFunc` on a Go function.
//  2. Finalization: empty pass-through blocks are removed, then reachability,
//     depth-first order, loop headers and dominators are computed.
//  3. Inspection: traverse blocks and edges, look up the nodes of a tree element,
//     or render the graph with `PrintDot`.
//
// Code after an unconditional jump keeps its blocks. They are marked
// unreachable instead of being dropped, so that dead code can be reported.
package cfg

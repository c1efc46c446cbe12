// Package internal holds the lint engine of flowlint.
//
// Engine runs a set of LintRule values over a parsed file. Every rule
// wraps a detector of the lints package, which builds the control flow
// graph of each function and runs one of the dataflow analyses on it.
// Issues inside the scope of a //nolint or //flowlint:ignore comment are
// dropped before they are returned.
//
// Usage:
//
//	engine, err := internal.NewEngine(rules, lints.Options{Logger: logger})
//	if err != nil {
//	    // handle error
//	}
//	issues, err := engine.Run("main.go")
package internal

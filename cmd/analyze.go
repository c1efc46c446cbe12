package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/constprop"
	"github.com/gnolang/flowlint/internal/analysis/liveness"
	"github.com/gnolang/flowlint/internal/analysis/zeroness"
	"github.com/gnolang/flowlint/lint"
)

var (
	analysisName  string
	widenAfter    int
	maxIterations int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Run one dataflow analysis on a function and print its result",
	Long: `Runs constant propagation (constprop), zero-ness (zeroness) or
liveness on the named function and prints the store at each block
followed by the findings of the analysis.
Example) flowlint analyze --func Average --analysis zeroness stats.go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide file paths")
		}
		config, err := lint.LoadConfig(configPath())
		if err != nil {
			return err
		}
		ac := config.Analysis
		if cmd.Flags().Changed("widen-after") {
			ac.WidenAfter = widenAfter
		}
		if cmd.Flags().Changed("max-iterations") {
			ac.MaxIterations = maxIterations
		}
		if cmd.Flags().Changed("suppress-implicit-exceptions") {
			ac.SuppressImplicitExceptions = suppressImplicit
		}
		return runAnalysis(cmd.OutOrStdout(), args, funcName, analysisName, ac)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&funcName, "func", "", "Function to analyze")
	analyzeCmd.Flags().StringVar(&analysisName, "analysis", "constprop", "Analysis to run: constprop, zeroness or liveness")
	analyzeCmd.Flags().IntVar(&widenAfter, "widen-after", 0, "Changes at a loop header before widening (negative disables)")
	analyzeCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Bound on block visits (0 means none)")
	analyzeCmd.Flags().BoolVar(&suppressImplicit, "suppress-implicit-exceptions", false, "Drop exceptional edges of implicit runtime failures")
	_ = analyzeCmd.MarkFlagRequired("func")
}

func runAnalysis(w io.Writer, paths []string, funcName, analysisName string, ac lint.AnalysisConfig) error {
	fn, fset, err := findFunc(paths, funcName)
	if err != nil {
		return err
	}
	opts := ac.Options(logger)
	g, err := cfg.FromFunc(fn, opts.CFG)
	if err != nil {
		return fmt.Errorf("building graph of %s: %w", funcName, err)
	}

	line := func(n *cfg.Node) int { return fset.Position(n.Pos()).Line }

	switch analysisName {
	case "constprop":
		res, err := constprop.Analyze(g, opts.Dataflow)
		if err != nil {
			return err
		}
		fmt.Fprint(w, res.String())
		for _, n := range g.Nodes() {
			if v, ok := constprop.Condition(res, n); ok {
				fmt.Fprintf(w, "line %d: condition is always %t\n", line(n), v)
			}
		}

	case "zeroness":
		res, err := zeroness.Analyze(g, opts.Dataflow)
		if err != nil {
			return err
		}
		fmt.Fprint(w, res.String())
		for _, f := range zeroness.Divisions(g, res) {
			fmt.Fprintf(w, "line %d: %s division by zero (divisor %v)\n", line(f.Node), f.Level, f.Divisor)
		}

	case "liveness":
		res, err := liveness.Analyze(g, opts.Dataflow)
		if err != nil {
			return err
		}
		fmt.Fprint(w, res.String())
		for _, n := range liveness.DeadStores(g, res) {
			fmt.Fprintf(w, "line %d: dead store to %s\n", line(n), n.Name())
		}

	default:
		return fmt.Errorf("unknown analysis %q (want constprop, zeroness or liveness)", analysisName)
	}
	return nil
}

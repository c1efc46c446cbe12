package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/lints"
)

// variable for flags
var (
	funcName         string
	output           string
	suppressImplicit bool
)

var cfgCmd = &cobra.Command{
	Use:   "cfg [paths...]",
	Short: "Print the control flow graph of a function",
	Long: `Outputs the control flow graph of the named function in GraphViz dot
format, or renders it with the dot tool when the output is not a .dot file.
Methods are named Type.Method.
Example) flowlint cfg --func MyFunction *.go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide file paths")
		}
		// timeout is a global variable declared in root.go
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return runCFGAnalysis(ctx, cmd.OutOrStdout(), args, funcName, output)
	},
}

func init() {
	cfgCmd.Flags().StringVar(&funcName, "func", "", "Function name for CFG analysis")
	cfgCmd.Flags().StringVarP(&output, "output", "o", "", "Output path (.dot, or any format the dot tool renders)")
	cfgCmd.Flags().BoolVar(&suppressImplicit, "suppress-implicit-exceptions", false, "Drop exceptional edges of implicit runtime failures")
	_ = cfgCmd.MarkFlagRequired("func")
}

func runCFGAnalysis(ctx context.Context, w io.Writer, paths []string, funcName string, output string) error {
	fn, fset, err := findFunc(paths, funcName)
	if err != nil {
		return err
	}
	g, err := cfg.FromFunc(fn, cfg.Options{SuppressImplicitExceptions: suppressImplicit})
	if err != nil {
		return fmt.Errorf("building graph of %s: %w", funcName, err)
	}

	var buf bytes.Buffer
	g.PrintDot(&buf, fset)

	switch {
	case output == "":
		_, err = w.Write(buf.Bytes())
		return err
	case filepath.Ext(output) == ".dot":
		err = os.WriteFile(output, buf.Bytes(), 0o644)
	default:
		err = renderGraphViz(ctx, buf.Bytes(), output)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "GraphViz file created: %s\n", output)
	return nil
}

// renderGraphViz runs the dot tool, choosing the format from the output
// extension.
func renderGraphViz(ctx context.Context, dot []byte, output string) error {
	format := strings.TrimPrefix(filepath.Ext(output), ".")
	if format == "" {
		return fmt.Errorf("cannot infer output format from %q", output)
	}
	cmd := exec.CommandContext(ctx, "dot", "-T"+format, "-o", output)
	cmd.Stdin = bytes.NewReader(dot)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running dot: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// findFunc returns the first declaration named name in paths. A method is
// named by its receiver type and method name, e.g. "Stack.Push".
func findFunc(paths []string, name string) (*ast.FuncDecl, *token.FileSet, error) {
	for _, path := range paths {
		f, fset, err := lints.ParseFile(path, nil)
		if err != nil {
			logger.Error("Failed to parse file", zap.String("path", path), zap.Error(err))
			continue
		}
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if ok && funcDisplayName(fn) == name {
				return fn, fset, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("function not found: %s", name)
}

func funcDisplayName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	typ := fn.Recv.List[0].Type
	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
			continue
		case *ast.IndexExpr:
			typ = t.X
			continue
		case *ast.IndexListExpr:
			typ = t.X
			continue
		case *ast.Ident:
			return t.Name + "." + fn.Name.Name
		}
		return fn.Name.Name
	}
}

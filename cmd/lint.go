package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gnolang/flowlint/formatter"
	"github.com/gnolang/flowlint/internal"
	tt "github.com/gnolang/flowlint/internal/types"
	"github.com/gnolang/flowlint/lint"
)

var (
	ignoreRules    string
	ignorePaths    string
	lintJsonOutput bool
	outPath        string
	failOn         string
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Run the dataflow lint rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide file or directory paths")
		}
		threshold, err := tt.ParseSeverity(failOn)
		if err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := lint.New(configPath(), logger)
		if err != nil {
			return fmt.Errorf("initializing lint engine: %w", err)
		}
		for _, rule := range splitList(ignoreRules) {
			engine.IgnoreRule(rule)
		}
		for _, path := range splitList(ignorePaths) {
			engine.IgnorePath(path)
		}

		return runNormalLintProcess(ctx, cmd.OutOrStdout(), engine, args, threshold)
	},
}

func init() {
	lintCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of lint rules to ignore")
	lintCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	lintCmd.Flags().BoolVar(&lintJsonOutput, "json", false, "Output issues in JSON format")
	lintCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	lintCmd.Flags().StringVar(&failOn, "fail-on", "warning", "Lowest severity that makes the run fail (error, warning, info)")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runNormalLintProcess(ctx context.Context, w io.Writer, engine lint.LintEngine, paths []string, threshold tt.Severity) error {
	issues, err := lint.ProcessFiles(ctx, logger, engine, paths, lint.ProcessFile)
	if err != nil {
		return err
	}

	if lintJsonOutput {
		err = writeJSON(w, issues, outPath)
	} else {
		err = printIssues(w, issues)
	}
	if err != nil {
		return err
	}

	for _, issue := range issues {
		if issue.Severity <= threshold {
			return ErrIssuesFound
		}
	}
	return nil
}

func groupByFile(issues []tt.Issue) (map[string][]tt.Issue, []string) {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}
	files := maps.Keys(issuesByFile)
	slices.Sort(files)
	return issuesByFile, files
}

func printIssues(w io.Writer, issues []tt.Issue) error {
	issuesByFile, files := groupByFile(issues)
	for _, filename := range files {
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			logger.Warn("Error reading source file", zap.String("file", filename), zap.Error(err))
		}
		if _, err := fmt.Fprint(w, formatter.GenerateFormattedIssue(issuesByFile[filename], sourceCode)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, formatter.Summary(issues))
	return err
}

func writeJSON(w io.Writer, issues []tt.Issue, jsonOutput string) error {
	issuesByFile, _ := groupByFile(issues)
	d, err := json.MarshalIndent(issuesByFile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling issues to JSON: %w", err)
	}
	if jsonOutput == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	if err := os.WriteFile(jsonOutput, d, 0o644); err != nil {
		return fmt.Errorf("writing JSON output file: %w", err)
	}
	return nil
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flowlint/internal/lints"
	tt "github.com/gnolang/flowlint/internal/types"
	"github.com/gnolang/flowlint/lint"
)

const testSource = `package main

type Stack struct{ n int }

func (s *Stack) Push(v int) {
	s.n += v
}

func average(sum int, c bool) int {
	n := 0
	if c {
		n = 4
	}
	return sum / n
}

func stores(a int) int {
	x := 1
	x = a
	k := 3
	if k > 2 {
		return x
	}
	return 0
}
`

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFuncDisplayName(t *testing.T) {
	t.Parallel()

	f, err := parser.ParseFile(token.NewFileSet(), "x.go", `package x
func F() {}
func (s *S) M() {}
func (l List[T]) Len() int { return 0 }
func (p Pair[K, V]) Key() K { var k K; return k }
`, 0)
	require.NoError(t, err)

	var names []string
	for _, decl := range f.Decls {
		names = append(names, funcDisplayName(decl.(*ast.FuncDecl)))
	}
	assert.Equal(t, []string{"F", "S.M", "List.Len", "Pair.Key"}, names)
}

func TestRunCFGAnalysis(t *testing.T) {
	t.Parallel()
	path := writeSource(t, testSource)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, runCFGAnalysis(ctx, &buf, []string{path}, "Stack.Push", ""))
	assert.Contains(t, buf.String(), `digraph "Push"`)
	assert.Contains(t, buf.String(), "ENTRY")

	out := filepath.Join(t.TempDir(), "average.dot")
	buf.Reset()
	require.NoError(t, runCFGAnalysis(ctx, &buf, []string{path}, "average", out))
	dot, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "shape=diamond")

	err = runCFGAnalysis(ctx, &buf, []string{path}, "missing", "")
	assert.ErrorContains(t, err, "function not found")
}

func TestRunAnalysis(t *testing.T) {
	t.Parallel()
	path := writeSource(t, testSource)

	tests := []struct {
		analysis string
		fn       string
		want     string
	}{
		{"zeroness", "average", "line 14: possible division by zero (divisor MaybeZero)"},
		{"liveness", "stores", "line 18: dead store to x"},
		{"constprop", "stores", "line 21: condition is always true"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		require.NoError(t, runAnalysis(&buf, []string{path}, tc.fn, tc.analysis, lint.AnalysisConfig{}), tc.analysis)
		assert.Contains(t, buf.String(), tc.want, tc.analysis)
		assert.Contains(t, buf.String(), "iterations", tc.analysis)
	}

	var buf bytes.Buffer
	err := runAnalysis(&buf, []string{path}, "stores", "interval", lint.AnalysisConfig{})
	assert.ErrorContains(t, err, "unknown analysis")

	err = runAnalysis(&buf, []string{path}, "average", "zeroness", lint.AnalysisConfig{MaxIterations: 1})
	assert.Error(t, err)
}

func TestRunNormalLintProcess(t *testing.T) {
	path := writeSource(t, testSource)

	engine, err := lint.New("", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runNormalLintProcess(context.Background(), &buf, engine, []string{path}, tt.SeverityWarning)
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, buf.String(), "warning: division-by-zero")
	assert.Contains(t, buf.String(), "warning: dead-store")
	assert.Contains(t, buf.String(), "found 2 issues (2 warnings)")

	buf.Reset()
	err = runNormalLintProcess(context.Background(), &buf, engine, []string{path}, tt.SeverityError)
	assert.NoError(t, err)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	issues := []tt.Issue{
		{Rule: lints.RuleDeadStore, Filename: "b.go", Message: "m1", Severity: tt.SeverityWarning},
		{Rule: lints.RuleDivisionByZero, Filename: "a.go", Message: "m2", Severity: tt.SeverityError},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, issues, ""))

	var decoded map[string][]tt.Issue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded["a.go"], 1)
	assert.Equal(t, tt.SeverityError, decoded["a.go"][0].Severity)
	assert.Contains(t, buf.String(), `"WARNING"`)

	out := filepath.Join(t.TempDir(), "issues.json")
	require.NoError(t, writeJSON(&buf, issues, out))
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), defaultConfigFile)

	require.NoError(t, initConfigurationFile(path, false))
	assert.Error(t, initConfigurationFile(path, false))
	require.NoError(t, initConfigurationFile(path, true))

	config, err := lint.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, lint.DefaultConfig(), config)
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestExecuteLint(t *testing.T) {
	path := writeSource(t, testSource)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"lint", "--ignore", lints.RuleDivisionByZero, path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		ignoreRules = ""
	})

	err := Execute()
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out.String(), "dead-store")
	assert.NotContains(t, out.String(), "division-by-zero")
}

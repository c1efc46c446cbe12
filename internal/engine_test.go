package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flowlint/internal/lints"
	"github.com/gnolang/flowlint/internal/types"
)

// createTempDir creates a temporary directory and returns its path.
// It also registers a cleanup function to remove the directory after the test.
func createTempDir(t testing.TB, prefix string) string {
	tempDir, err := os.MkdirTemp("", prefix)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

const sample = `package main

func f(c bool) int {
	x := 1
	x = 2
	y := 0
	if c {
		return x / y
	}
	return x
	println("dead")
}
`

func TestNewEngine(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		lints.RuleAnalysisFailure,
		lints.RuleDeadStore,
		lints.RuleDivisionByZero,
		lints.RuleUnreachableCode,
	}, engine.Rules())

	engine, err = NewEngine(map[string]types.ConfigRule{
		lints.RuleConstantCondition: {Severity: types.SeverityWarning},
		lints.RuleDeadStore:         {Severity: types.SeverityOff},
		"no-such-rule":              {Severity: types.SeverityError},
	}, lints.Options{})
	require.NoError(t, err)
	assert.Contains(t, engine.Rules(), lints.RuleConstantCondition)
	assert.NotContains(t, engine.Rules(), lints.RuleDeadStore)

	_, err = NewEngine(map[string]types.ConfigRule{
		"no-such-rule": {Severity: types.Severity(42)},
	}, lints.Options{})
	assert.Error(t, err)
}

func TestKnownRules(t *testing.T) {
	t.Parallel()

	assert.Len(t, KnownRules(), 6)
	sev, ok := DefaultSeverity(lints.RuleConstantCondition)
	assert.True(t, ok)
	assert.Equal(t, types.SeverityOff, sev)
	_, ok = DefaultSeverity("no-such-rule")
	assert.False(t, ok)
}

func TestEngine_Run(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "engine_test")
	file := filepath.Join(tempDir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o644))

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)

	issues, err := engine.Run(file)
	require.NoError(t, err)

	var rules []string
	for _, issue := range issues {
		assert.Equal(t, file, issue.Filename)
		rules = append(rules, issue.Rule)
	}
	assert.Equal(t, []string{
		lints.RuleDeadStore,
		lints.RuleDivisionByZero,
		lints.RuleUnreachableCode,
	}, rules)
	assert.Equal(t, types.SeverityError, issues[1].Severity)

	_, err = engine.Run(filepath.Join(tempDir, "missing.go"))
	assert.Error(t, err)
}

func TestEngine_RunSource(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)

	issues, err := engine.RunSource([]byte(sample))
	require.NoError(t, err)
	assert.Len(t, issues, 3)

	_, err = engine.RunSource([]byte("package main\nfunc {"))
	assert.Error(t, err)
}

func TestEngine_IgnoreRule(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)
	engine.IgnoreRule(lints.RuleDeadStore)
	engine.IgnoreRule(lints.RuleUnreachableCode)
	assert.True(t, engine.ignoredRules[lints.RuleDeadStore])

	issues, err := engine.RunSource([]byte(sample))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, lints.RuleDivisionByZero, issues[0].Rule)
}

func TestEngine_IgnorePath(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "ignore_path_test")
	vendor := filepath.Join(tempDir, "vendor")
	require.NoError(t, os.MkdirAll(vendor, 0o755))

	files := map[string]string{
		filepath.Join(vendor, "lib.go"):     sample,
		filepath.Join(tempDir, "gen_pb.go"): sample,
		filepath.Join(tempDir, "main.go"):   sample,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	}

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)
	engine.IgnorePath(vendor)
	engine.IgnorePath("*_pb.go")
	engine.IgnorePath("")

	for name := range files {
		issues, err := engine.Run(name)
		require.NoError(t, err)
		if filepath.Base(name) == "main.go" {
			assert.NotEmpty(t, issues, name)
		} else {
			assert.Empty(t, issues, name)
		}
	}
}

func TestEngine_Nolint(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(nil, lints.Options{})
	require.NoError(t, err)

	issues, err := engine.RunSource([]byte(`package main

func f() int {
	x := 1 //nolint:dead-store
	x = 2
	return x
}
`))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestReadSourceCode(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "source_code_test")

	testFile := filepath.Join(tempDir, "test.go")
	content := "package main\n\nfunc main() {\n\tprintln(\"Hello, World!\")\n}"
	err := os.WriteFile(testFile, []byte(content), 0o644)
	require.NoError(t, err)

	sourceCode, err := ReadSourceCode(testFile)
	assert.NoError(t, err)
	assert.NotNil(t, sourceCode)
	assert.Len(t, sourceCode.Lines, 5)
	assert.Equal(t, "package main", sourceCode.Lines[0])
}

func BenchmarkRunSource(b *testing.B) {
	engine, err := NewEngine(nil, lints.Options{})
	if err != nil {
		b.Fatalf("failed to create engine: %v", err)
	}
	src := []byte(sample)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RunSource(src); err != nil {
			b.Fatalf("failed to run engine: %v", err)
		}
	}
}

package internal

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gnolang/flowlint/internal/lints"
	"github.com/gnolang/flowlint/internal/nolint"
	tt "github.com/gnolang/flowlint/internal/types"
)

// Engine manages the linting process.
type Engine struct {
	ignoredRules map[string]bool
	ignoredPaths []string
	rules        map[string]LintRule
	logger       *zap.Logger
}

// ruleConstructor builds a rule that runs with the given options.
type ruleConstructor func(lints.Options) LintRule

// allRuleConstructors maps rule names to their constructors.
var allRuleConstructors = map[string]ruleConstructor{
	lints.RuleDivisionByZero:       NewDivisionByZeroRule,
	lints.RuleUnreachableCode:      NewUnreachableCodeRule,
	lints.RuleDeadStore:            NewDeadStoreRule,
	lints.RuleConstantCondition:    NewConstantConditionRule,
	lints.RuleAnalysisFailure:      NewAnalysisFailureRule,
	lints.RuleCyclomaticComplexity: NewCyclomaticComplexityRule,
}

// KnownRules returns the names of every rule, sorted.
func KnownRules() []string {
	names := maps.Keys(allRuleConstructors)
	slices.Sort(names)
	return names
}

// DefaultSeverity returns the severity a rule has when the configuration
// does not mention it.
func DefaultSeverity(rule string) (tt.Severity, bool) {
	newRule, ok := allRuleConstructors[rule]
	if !ok {
		return tt.SeverityOff, false
	}
	return newRule(lints.Options{}).Severity(), true
}

// NewEngine creates a new lint engine. rules overrides the default
// severities; a rule set to SeverityOff does not run. Unknown rule names
// are logged and skipped.
func NewEngine(rules map[string]tt.ConfigRule, opts lints.Options) (*Engine, error) {
	engine := &Engine{logger: opts.Logger}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}
	if err := engine.applyRules(rules, opts); err != nil {
		return nil, err
	}
	return engine, nil
}

func (e *Engine) applyRules(rules map[string]tt.ConfigRule, opts lints.Options) error {
	e.rules = make(map[string]LintRule)
	for name, newRule := range allRuleConstructors {
		r := newRule(opts)
		if conf, ok := rules[name]; ok {
			r.SetSeverity(conf.Severity)
		}
		if r.Severity() != tt.SeverityOff {
			e.rules[name] = r
		}
	}
	for name, conf := range rules {
		if _, ok := allRuleConstructors[name]; ok {
			continue
		}
		if conf.Severity < tt.SeverityError || conf.Severity > tt.SeverityOff {
			return fmt.Errorf("rule %s: invalid severity %d", name, conf.Severity)
		}
		e.logger.Warn("unknown rule in configuration", zap.String("rule", name))
	}
	return nil
}

// Rules returns the names of the rules that run, sorted.
func (e *Engine) Rules() []string {
	var names []string
	for name := range e.rules {
		if !e.ignoredRules[name] {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Run applies all lint rules to the given file and returns a slice of Issues.
func (e *Engine) Run(filename string) ([]tt.Issue, error) {
	if e.isIgnoredPath(filename) {
		e.logger.Debug("skipping ignored path", zap.String("file", filename))
		return nil, nil
	}
	node, fset, err := lints.ParseFile(filename, nil)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return e.check(filename, node, fset), nil
}

// RunSource applies all lint rules to the given source and returns a slice of Issues.
func (e *Engine) RunSource(source []byte) ([]tt.Issue, error) {
	node, fset, err := lints.ParseFile("", source)
	if err != nil {
		return nil, fmt.Errorf("error parsing content: %w", err)
	}
	return e.check("", node, fset), nil
}

// check runs the rules concurrently. A rule that fails is logged and
// contributes no issues.
func (e *Engine) check(filename string, node *ast.File, fset *token.FileSet) []tt.Issue {
	nolintMgr := nolint.ParseComments(node, fset)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allIssues []tt.Issue
	)
	for _, rule := range e.rules {
		if e.ignoredRules[rule.Name()] {
			continue
		}
		wg.Add(1)
		go func(r LintRule) {
			defer wg.Done()
			issues, err := r.Check(filename, node, fset)
			if err != nil {
				e.logger.Error("rule failed", zap.String("rule", r.Name()), zap.String("file", filename), zap.Error(err))
				return
			}
			issues = filterNolintIssues(nolintMgr, issues)

			mu.Lock()
			allIssues = append(allIssues, issues...)
			mu.Unlock()
		}(rule)
	}
	wg.Wait()

	sortIssues(allIssues)
	return allIssues
}

func (e *Engine) IgnoreRule(rule string) {
	if e.ignoredRules == nil {
		e.ignoredRules = make(map[string]bool)
	}
	e.ignoredRules[rule] = true
}

// IgnorePath skips files matching a glob pattern or lying under a
// directory.
func (e *Engine) IgnorePath(path string) {
	if path == "" {
		return
	}
	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(path))
}

func (e *Engine) isIgnoredPath(filename string) bool {
	filename = filepath.Clean(filename)
	for _, p := range e.ignoredPaths {
		if filename == p || strings.HasPrefix(filename, p+string(filepath.Separator)) {
			return true
		}
		if ok, _ := filepath.Match(p, filename); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(filename)); ok {
			return true
		}
	}
	return false
}

// filterNolintIssues filters issues based on nolint comments.
func filterNolintIssues(mgr *nolint.Manager, issues []tt.Issue) []tt.Issue {
	if mgr == nil {
		return issues
	}
	filtered := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		if !mgr.IsNolint(issue.Start, issue.Rule) {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}

func sortIssues(issues []tt.Issue) {
	slices.SortFunc(issues, func(a, b tt.Issue) bool {
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Start.Line != b.Start.Line {
			return a.Start.Line < b.Start.Line
		}
		if a.Start.Column != b.Start.Column {
			return a.Start.Column < b.Start.Column
		}
		return a.Rule < b.Rule
	})
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}

package internal

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/flowlint/internal/lints"
	tt "github.com/gnolang/flowlint/internal/types"
)

/*
* Each flow rule wraps one detector of the lints package.
 */

// LintRule defines the interface for all lint rules.
type LintRule interface {
	// Check runs the lint rule on the given file and returns a slice of Issues.
	Check(filename string, node *ast.File, fset *token.FileSet) ([]tt.Issue, error)

	// Name returns the name of the lint rule.
	Name() string

	// Severity returns the severity of the lint rule.
	Severity() tt.Severity

	// SetSeverity sets the severity of the lint rule.
	SetSeverity(tt.Severity)
}

type detectFunc func(filename string, node *ast.File, fset *token.FileSet, severity tt.Severity, opts lints.Options) ([]tt.Issue, error)

// flowRule runs a dataflow-based detector with the engine's options.
type flowRule struct {
	name     string
	severity tt.Severity
	detect   detectFunc
	opts     lints.Options
}

func (r *flowRule) Check(filename string, node *ast.File, fset *token.FileSet) ([]tt.Issue, error) {
	return r.detect(filename, node, fset, r.severity, r.opts)
}

func (r *flowRule) Name() string              { return r.name }
func (r *flowRule) Severity() tt.Severity     { return r.severity }
func (r *flowRule) SetSeverity(s tt.Severity) { r.severity = s }

func NewDivisionByZeroRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleDivisionByZero,
		severity: tt.SeverityWarning,
		detect:   lints.DetectDivisionByZero,
		opts:     opts,
	}
}

func NewUnreachableCodeRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleUnreachableCode,
		severity: tt.SeverityWarning,
		detect:   lints.DetectUnreachableCode,
		opts:     opts,
	}
}

func NewDeadStoreRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleDeadStore,
		severity: tt.SeverityWarning,
		detect:   lints.DetectDeadStores,
		opts:     opts,
	}
}

// NewConstantConditionRule is off unless enabled in the configuration.
func NewConstantConditionRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleConstantCondition,
		severity: tt.SeverityOff,
		detect:   lints.DetectConstantConditions,
		opts:     opts,
	}
}

func NewAnalysisFailureRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleAnalysisFailure,
		severity: tt.SeverityInfo,
		detect:   lints.DetectAnalysisFailures,
		opts:     opts,
	}
}

// NewCyclomaticComplexityRule is off unless enabled in the configuration.
func NewCyclomaticComplexityRule(opts lints.Options) LintRule {
	return &flowRule{
		name:     lints.RuleCyclomaticComplexity,
		severity: tt.SeverityOff,
		detect:   lints.DetectHighCyclomaticComplexity,
		opts:     opts,
	}
}

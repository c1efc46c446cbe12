package lint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/flowlint/internal"
	"github.com/gnolang/flowlint/internal/analysis/cfg"
	"github.com/gnolang/flowlint/internal/analysis/dataflow"
	"github.com/gnolang/flowlint/internal/lints"
	tt "github.com/gnolang/flowlint/internal/types"
)

type LintEngine interface {
	Run(filePath string) ([]tt.Issue, error)
	RunSource(source []byte) ([]tt.Issue, error)
	IgnoreRule(rule string)
	IgnorePath(path string)
}

// Config is the content of a configuration file.
type Config struct {
	Name        string                   `yaml:"name"`
	Rules       map[string]tt.ConfigRule `yaml:"rules"`
	Analysis    AnalysisConfig           `yaml:"analysis,omitempty"`
	IgnorePaths []string                 `yaml:"ignore-paths,omitempty"`
}

// AnalysisConfig tunes graph construction and the fixpoint solver.
type AnalysisConfig struct {
	// WidenAfter is the number of changes at a loop header before the
	// solver widens. Zero keeps the default; negative disables widening.
	WidenAfter int `yaml:"widen-after,omitempty"`
	// MaxIterations bounds the block visits per analysis. Zero means no
	// bound.
	MaxIterations              int  `yaml:"max-iterations,omitempty"`
	SuppressImplicitExceptions bool `yaml:"suppress-implicit-exceptions,omitempty"`
	// CyclomaticThreshold is the highest complexity accepted by the
	// high-cyclomatic-complexity rule.
	CyclomaticThreshold int `yaml:"cyclomatic-threshold,omitempty"`
}

// Options converts the configuration into the options of the flow rules.
func (c AnalysisConfig) Options(logger *zap.Logger) lints.Options {
	return lints.Options{
		CFG: cfg.Options{SuppressImplicitExceptions: c.SuppressImplicitExceptions},
		Dataflow: dataflow.Config{
			WidenAfter:    c.WidenAfter,
			MaxIterations: c.MaxIterations,
			Logger:        logger,
		},
		Logger:              logger,
		CyclomaticThreshold: c.CyclomaticThreshold,
	}
}

// DefaultConfig lists every rule with its default severity.
func DefaultConfig() Config {
	config := Config{
		Name:  "flowlint",
		Rules: make(map[string]tt.ConfigRule),
	}
	for _, rule := range internal.KnownRules() {
		sev, _ := internal.DefaultSeverity(rule)
		config.Rules[rule] = tt.ConfigRule{Severity: sev}
	}
	return config
}

// LoadConfig reads the configuration file at path. An empty path selects
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	config, err := parseConfigurationFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	return config, nil
}

// New creates an engine configured by the file at configurationPath. An
// empty path selects the defaults.
func New(configurationPath string, logger *zap.Logger) (*internal.Engine, error) {
	config, err := LoadConfig(configurationPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := internal.NewEngine(config.Rules, config.Analysis.Options(logger))
	if err != nil {
		return nil, err
	}
	for _, p := range config.IgnorePaths {
		engine.IgnorePath(p)
	}
	return engine, nil
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	sources [][]byte,
	processor func(LintEngine, []byte) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return allIssues, err
		}
		issues, err := processor(engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	paths []string,
	processor func(LintEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

type fileResult struct {
	path   string
	issues []tt.Issue
	err    error
}

// ProcessPath lints a file or every Go file under a directory. Files of a
// directory are processed by a pool of workers; a failing file does not
// stop the others, and all failures are returned joined. On cancellation
// the issues found so far are returned with the context error.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	path string,
	processor func(LintEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	issues := []tt.Issue{}
	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return issues, nil
		}
		fileIssues, err := processor(engine, path)
		if err != nil {
			return issues, err
		}
		return append(issues, fileIssues...), nil
	}

	files, err := collectFiles(path)
	if err != nil {
		return nil, err
	}

	bar := newProgress(path, len(files))
	jobs := make(chan string)
	results := make(chan fileResult, len(files))

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for fp := range jobs {
				bar.start(fp)
				fileIssues, err := processor(engine, fp)
				results <- fileResult{path: fp, issues: fileIssues, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, fp := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- fp:
			}
		}
	}()

	var errs []error
	for done := 0; done < len(files); done++ {
		var res fileResult
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case res = <-results:
			}
		}
		if err := ctx.Err(); err != nil {
			bar.finish()
			return sortByFile(issues), err
		}
		bar.add()
		if res.err != nil {
			if logger != nil {
				logger.Error("Error processing file", zap.String("file", res.path), zap.Error(res.err))
			}
			errs = append(errs, fmt.Errorf("%s: %w", res.path, res.err))
			continue
		}
		issues = append(issues, res.issues...)
	}
	bar.finish()

	return sortByFile(issues), errors.Join(errs...)
}

// collectFiles walks root and returns the Go files below it, skipping
// hidden directories and testdata.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (name == "testdata" || (len(name) > 1 && name[0] == '.')) {
				return filepath.SkipDir
			}
			return nil
		}
		if hasDesiredExtension(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// sortByFile orders issues by file, keeping the order within a file.
func sortByFile(issues []tt.Issue) []tt.Issue {
	slices.SortStableFunc(issues, func(a, b tt.Issue) bool {
		return a.Filename < b.Filename
	})
	return issues
}

func ProcessFile(engine LintEngine, filePath string) ([]tt.Issue, error) {
	return engine.Run(filePath)
}

func ProcessSource(engine LintEngine, source []byte) ([]tt.Issue, error) {
	return engine.RunSource(source)
}

func hasDesiredExtension(path string) bool {
	return filepath.Ext(path) == ".go"
}

func parseConfigurationFile(configurationPath string) (Config, error) {
	var config Config

	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, err
	}

	return config, nil
}

// WriteConfigurationFile writes config as YAML to path.
func WriteConfigurationFile(path string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

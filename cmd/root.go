package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/gnolang/flowlint/formatter"
)

const (
	defaultTimeout    = 5 * time.Minute
	defaultConfigFile = ".flowlint.yaml"
)

// ErrIssuesFound is returned when the lint run reports issues at or above
// the failing severity.
var ErrIssuesFound = errors.New("issues found")

var (
	cfgFile string
	timeout time.Duration
	debug   bool
	noColor bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:               "flowlint [paths...]",
	Short:             "flowlint - dataflow analysis and linting for Go",
	TraverseChildren:  true, // Prioritize subcommands
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		// flowlint [path1 path2 ...] behaves like the lint subcommand
		return lintCmd.RunE(lintCmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Configuration file (default "+defaultConfigFile+" when present)")
	flags.DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for the whole run")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(cfgCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	l, err := newLogger(debug)
	if err != nil {
		return err
	}
	logger = l
	formatter.SetColor(!noColor && term.IsTerminal(int(os.Stdout.Fd())))
	return nil
}

// newLogger logs warnings and errors to stderr, or everything with debug.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Development = true
	}
	return config.Build()
}

// configPath returns the configuration file to load, or "" for the
// defaults.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

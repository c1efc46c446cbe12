package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnolang/flowlint/lint"
)

var force bool

// initCmd: flowlint init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file listing every rule with its default severity",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = defaultConfigFile
		}
		if err := initConfigurationFile(path, force); err != nil {
			return fmt.Errorf("initializing config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
}

func initConfigurationFile(configurationPath string, overwrite bool) error {
	if _, err := os.Stat(configurationPath); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", configurationPath)
	}
	return lint.WriteConfigurationFile(configurationPath, lint.DefaultConfig())
}

// Package cli implements the odigen command line interface.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig  string
	flagDir     string
	flagVerbose bool
)

// RootCmd is the odigen entry command.
var RootCmd = &cobra.Command{
	Use:   "odigen",
	Short: "Generate dependency injection wiring from source annotations",
	Long: `odigen analyzes annotated Go types and generates constructors and
container registrations for them.

Types opt in with odigen directives in their doc comments and inject
struct tags on their fields. The analysis resolves interface contracts,
inheritance chains and generic instantiations, validates lifetimes and
cycles, and writes one generated file per package.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to odigen.yaml (default: ./odigen.yaml)")
	RootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".", "Module directory to analyze")
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	RootCmd.AddCommand(generateCmd)
	RootCmd.AddCommand(checkCmd)
}

// newLogger builds the CLI logger; verbose switches to the development
// encoder with debug enabled.
func newLogger() (*zap.SugaredLogger, error) {
	if flagVerbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

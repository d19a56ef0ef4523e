// Package cli implements the command-line driving adapter. Commands drive
// the core exclusively through the driving ports; the composition root
// injects the wiring before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driving"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// RunEnvironment is one invocation's wired exporter plus its teardown.
type RunEnvironment struct {
	Exporter driving.Exporter
	Cleanup  func() error
}

// EnvironmentBuilder assembles the exporter pipeline for one run.
type EnvironmentBuilder func(settings domain.Settings, issns domain.ISSNSet, outputPath string) (*RunEnvironment, error)

// buildEnvironment is injected by the composition root.
var buildEnvironment EnvironmentBuilder

// SetEnvironmentBuilder injects the pipeline wiring. Must be called before
// Execute.
func SetEnvironmentBuilder(builder EnvironmentBuilder) {
	buildEnvironment = builder
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Export SciELO documents to indexing services",
	Long: `Synchronises bibliographic records from the ArticleMeta catalogue
to external indexing services, restricted to an ISSN allow-list.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

package main

import (
	"github.com/spf13/cobra"
	_ "github.com/viant/mlinspect/examples/healthcare"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "mlinspect",
	Short:   "Inspect ML pipelines",
	Version: version,
	Long: `Runs a registered pipeline under instrumentation, extracts its operator DAG,
executes the configured inspections for every operator and evaluates the checks.`,
	Example: `  # List registered pipelines
  $ mlinspect list

  # Run a pipeline with the checks of a config file
  $ mlinspect run -c inspect.yaml

  # Extract the DAG of a pipeline
  $ mlinspect dag -p healthcare -o /tmp/healthcare_dag.yaml`,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dagCmd)
}

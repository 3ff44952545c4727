package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/viant/mlinspect/config"
)

var (
	dagPipeline string
	dagURL      string
	dagLevel    string
)

var dagCmd = &cobra.Command{
	Use:          "dag",
	Short:        "extract the operator DAG of a pipeline",
	Example:      `  $ mlinspect dag -p healthcare -o /tmp/healthcare_dag.yaml`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg := config.DefaultConfig()
		cfg.Pipeline = dagPipeline
		cfg.DAG = dagURL
		cfg.LogLevel = dagLevel
		builder, err := newBuilder(ctx, cfg)
		if err != nil {
			return err
		}
		result, err := builder.Execute(ctx)
		if err != nil {
			return err
		}
		printInfo("%s: %d operators, %d edges written to %s", dagPipeline, result.Inspection.DAG.Len(), len(result.Inspection.DAG.Edges()), dagURL)
		return nil
	},
}

func init() {
	dagCmd.Flags().StringVarP(&dagPipeline, "pipeline", "p", "", "registered pipeline")
	dagCmd.Flags().StringVarP(&dagURL, "output", "o", "", "DAG YAML destination URL")
	dagCmd.Flags().StringVarP(&dagLevel, "level", "l", "warning", "log level")
	_ = dagCmd.MarkFlagRequired("pipeline")
	_ = dagCmd.MarkFlagRequired("output")
}

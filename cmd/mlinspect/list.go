package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/mlinspect"
)

var listCmd = &cobra.Command{
	Use:          "list",
	Short:        "list registered pipelines",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		boldColor.Println("PIPELINES")
		for _, name := range mlinspect.Pipelines() {
			printInfo("  %s", name)
		}
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/viant/mlinspect/checks"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

func printInfo(format string, args ...interface{}) {
	infoColor.Printf("%s\n", fmt.Sprintf(format, args...))
}

func printCheck(result *checks.Result) {
	switch result.Status {
	case checks.Success:
		successColor.Printf("✓ %s\n", result.Check.ID())
	default:
		failureColor.Printf("✗ %s\n", result.Check.ID())
		if result.Description != "" {
			fmt.Printf("  %s\n", result.Description)
		}
	}
}

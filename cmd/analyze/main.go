package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dataexplorer/core/internal/analyzer"
)

const healthGateThreshold = 70

func main() {
	var (
		moduleFilter string
		gate         bool
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Run the Feng Shui static-analysis orchestrator over a source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			code := runAnalyze(root, moduleFilter, gate, jsonOutput)
			os.Exit(code)

			return nil
		},
	}

	cmd.Flags().StringVar(&moduleFilter, "module", "", "restrict findings to one module id")
	cmd.Flags().BoolVar(&gate, "gate", false, "exit non-zero on critical findings or a sub-threshold health score")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit findings and health as JSON")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}

// runAnalyze returns the process exit code per spec.md §6: 0 ok, 1
// findings present but below the gate threshold, 2 a critical finding or
// a sub-threshold health score with --gate, 3 an engine error.
func runAnalyze(root, moduleFilter string, gate, jsonOutput bool) int {
	tree, err := analyzer.Walk(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "analyze: failed to walk source tree:", err)
		return 3
	}

	report, err := analyzer.New().Run(context.Background(), tree, moduleFilter)
	if err != nil {
		fmt.Fprintln(os.Stderr, "analyze: engine error:", err)
		return 3
	}

	if jsonOutput {
		payload := struct {
			Findings interface{} `json:"findings"`
			Health   interface{} `json:"health"`
		}{Findings: report.Findings, Health: report.Health}

		out, marshalErr := json.MarshalIndent(payload, "", "  ")
		if marshalErr != nil {
			fmt.Fprintln(os.Stderr, "analyze: failed to marshal report:", marshalErr)
			return 3
		}

		fmt.Println(string(out))
	} else {
		for _, f := range report.Findings {
			fmt.Printf("[%s] %s:%d %s %s\n", f.Severity, f.Location.Path, f.Location.Line, f.RuleID, f.Message)
		}
	}

	if !gate {
		return 0
	}

	failed := false

	for _, f := range report.Findings {
		if f.Severity == "critical" {
			failed = true
		}
	}

	for _, h := range report.Health {
		if h.Score < healthGateThreshold {
			failed = true
		}
	}

	switch {
	case failed:
		return 2
	case len(report.Findings) > 0:
		return 1
	default:
		return 0
	}
}

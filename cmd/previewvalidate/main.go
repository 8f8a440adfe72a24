package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dataexplorer/core/internal/previewvalidator"
)

func main() {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "previewvalidate [path]",
		Short: "Run the Preview Validator's five-agent subset over design docs and planned descriptors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			findings, err := previewvalidator.Run(root)
			if err != nil {
				return err
			}

			if jsonOutput {
				out, marshalErr := json.MarshalIndent(findings, "", "  ")
				if marshalErr != nil {
					return marshalErr
				}

				fmt.Println(string(out))

				return nil
			}

			for _, f := range findings {
				fmt.Printf("[%s] %s %s %s\n", f.Severity, f.Location.Path, f.RuleID, f.Message)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit findings as JSON")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

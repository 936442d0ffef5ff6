package cmd

import (
	"fmt"
	"os"

	"github.com/solatis/gfb/internal/document"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <document>",
	Short: "Sort address lists of a filter document by domain",
	Long: `Clean rewrites the from, to, cc and bcc value lists of a filter document
sorted by mail domain and writes the result to cleaned_filters.yaml next to the
input. The input file is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringP("output", "o", "", "output path (default cleaned_filters.yaml beside the input)")
}

func runClean(cmd *cobra.Command, args []string) error {
	input := args[0]
	if err := document.CheckPath(input); err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read filter document: %w", err)
	}

	cleaned, err := document.Clean(data)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = document.CleanedPath(input)
	}
	if err := os.WriteFile(output, cleaned, 0o644); err != nil {
		return fmt.Errorf("failed to write cleaned document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
	return nil
}

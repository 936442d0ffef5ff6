package cmd

import (
	"fmt"
	"time"

	"github.com/solatis/gfb/internal/document"
	"github.com/solatis/gfb/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <document>",
	Short: "Write a Gmail-importable XML filter feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "output path (overrides export.path)")
	exportCmd.Flags().Int("budget", 0, "character budget per query (overrides compiler.budget)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Export.Path, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("budget") {
		cfg.Compiler.Budget, _ = cmd.Flags().GetInt("budget")
	}

	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	service, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	filters, err := service.Compiler().CompileDocument(cmd.Context(), doc)
	if err != nil {
		return err
	}

	path, err := export.WriteFile(cfg.Export.Path, filters, time.Now())
	if err != nil {
		return err
	}

	queries := 0
	for _, f := range filters {
		queries += len(f.Queries)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d filters for %d labels to %s\n", queries, len(filters), path)
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/solatis/gfb/internal/document"
	"github.com/solatis/gfb/internal/query"
	"github.com/solatis/gfb/internal/types"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <document>",
	Short: "Compile a filter document into Gmail API filter resources",
	Long: `Compile prints one JSON object per label holding its queries and the
Gmail API filter resources to create. With --persist the result replaces the
account's stored filter set.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Int("budget", 0, "character budget per query (overrides compiler.budget)")
	compileCmd.Flags().StringToString("label-id", nil, "remote label id per label (label=Label_123)")
	compileCmd.Flags().Bool("persist", false, "store the result in the filter registry")
	compileCmd.Flags().String("account", "", "account owning the persisted filters")
}

type compiledLabel struct {
	Label     string                 `json:"label"`
	Queries   []string               `json:"queries"`
	Actions   []string               `json:"actions"`
	Resources []query.FilterResource `json:"resources"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("budget") {
		cfg.Compiler.Budget, _ = cmd.Flags().GetInt("budget")
	}
	persist, _ := cmd.Flags().GetBool("persist")
	account, _ := cmd.Flags().GetString("account")
	labelIDs, _ := cmd.Flags().GetStringToString("label-id")

	if err := document.CheckPath(args[0]); err != nil {
		return err
	}
	doc, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read filter document: %w", err)
	}

	database, store, err := openRegistry(cfg, persist)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	service, err := newService(cfg, store)
	if err != nil {
		return err
	}
	result, err := service.Compile(cmd.Context(), types.AccountID(account), doc, persist)
	if err != nil {
		return err
	}

	out := make([]compiledLabel, 0, len(result.Filters))
	for _, f := range result.Filters {
		out = append(out, compiledLabel{
			Label:     f.Label,
			Queries:   f.Queries,
			Actions:   f.ActionNames(),
			Resources: f.Resources(labelIDs[f.Label]),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if result.ETag != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored %d queries, etag %s\n", len(result.Records), result.ETag)
	}
	return nil
}

package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/solatis/gfb/internal/core/auth"
	"github.com/solatis/gfb/internal/core/config"
	"github.com/solatis/gfb/internal/types"
	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys of the compile service",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key for an account",
	Long: `Create signs a new key with the newest GFB_HMAC_SECRET and stores its
HMAC. The key is printed once and cannot be recovered.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the API keys of an account",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd, apiKeyListCmd)
	for _, c := range []*cobra.Command{apiKeyCreateCmd, apiKeyListCmd} {
		c.Flags().String("account", "", "account the key belongs to")
		c.MarkFlagRequired("account")
	}
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	account, _ := cmd.Flags().GetString("account")

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	database, store, err := openRegistry(cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	key, hash, err := auth.NewAuthenticator(secrets, store.Queries()).Issue()
	if err != nil {
		return err
	}
	id, err := store.CreateAPIKey(cmd.Context(), types.AccountID(account), hash)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "api key id: %s\napi key:    %s\n", id, key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, store, err := openRegistry(cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.RevokeAPIKey(cmd.Context(), types.APIKeyID(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	account, _ := cmd.Flags().GetString("account")

	database, store, err := openRegistry(cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	keys, err := store.ListAPIKeys(cmd.Context(), types.AccountID(account))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tLAST USED\tREVOKED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.APIKeyID, k.CreatedAt.UTC().Format(time.RFC3339), formatTime(k.LastUsedAt), formatTime(k.RevokedAt))
	}
	return w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dativo-io/scrub/internal/config"
	"github.com/dativo-io/scrub/internal/vault"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Work with sealed private-data files",
}

var vaultOpenCmd = &cobra.Command{
	Use:   "open [file]",
	Short: "Decrypt a sealed vault and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  vaultOpen,
}

func init() {
	vaultCmd.AddCommand(vaultOpenCmd)
	rootCmd.AddCommand(vaultCmd)
}

func vaultOpen(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "vault.open")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sealed, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	env, err := vault.Open(ctx, sealed, cfg.VaultKey)
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

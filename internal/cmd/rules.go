package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dativo-io/scrub/internal/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active detection rules in the order they run",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "rules")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		reg, err := cfg.Registry()
		if err != nil {
			return fmt.Errorf("building rule registry: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-22s %-12s %-20s %s\n", "RULE", "BUCKET", "CATEGORY", "PLACEHOLDER")
		for _, r := range reg.Rules() {
			fmt.Fprintf(out, "%-22s %-12s %-20s %s\n", r.Name, r.Bucket, r.Category, r.Placeholder)
		}
		fmt.Fprintf(out, "\n%d rules\n", reg.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	textJSON       bool
	textQuiet      bool
	textPrivateOut string
)

var textCmd = &cobra.Command{
	Use:   "text [file|-]",
	Short: "Redact free-form text from a file or stdin",
	Long: `Redact free-form text and write it to stdout. The sanitization summary
goes to stderr unless --quiet is set.

Use --private-out to seal the removed values into an encrypted vault file
("auto" writes it under the data directory).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runText,
}

func init() {
	textCmd.Flags().BoolVar(&textJSON, "json", false, "print redacted text, log and summary as JSON")
	textCmd.Flags().BoolVarP(&textQuiet, "quiet", "q", false, "do not print the summary")
	textCmd.Flags().StringVar(&textPrivateOut, "private-out", "", `seal removed values to this file ("auto" for the data directory)`)
	rootCmd.AddCommand(textCmd)
}

type textOutput struct {
	Redacted string   `json:"redacted"`
	Log      []string `json:"log"`
	Summary  string   `json:"summary"`
	Vault    string   `json:"vault,omitempty"`
}

func runText(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "text")
	defer span.End()

	input, _, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	cfg, engine, err := newEngine()
	if err != nil {
		return err
	}

	redacted, entries := engine.SanitizeText(ctx, string(input))

	var vaultPath string
	if textPrivateOut != "" {
		if vaultPath, err = writePrivate(ctx, cfg, engine, textPrivateOut); err != nil {
			return err
		}
	}

	if textJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(textOutput{
			Redacted: redacted,
			Log:      entries.Strings(),
			Summary:  engine.Summary(),
			Vault:    vaultPath,
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), redacted)
	if !textQuiet {
		fmt.Fprintln(cmd.ErrOrStderr(), engine.Summary())
		if vaultPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Private data sealed to %s\n", vaultPath)
		}
	}
	return nil
}

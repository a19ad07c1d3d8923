package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	recordFormat     string
	recordQuiet      bool
	recordPrivateOut string
)

var recordCmd = &cobra.Command{
	Use:   "record [file|-]",
	Short: "Redact every string in a JSON or YAML document",
	Long: `Redact every string value of a JSON or YAML document and write the
document back in the same format. Keys, numbers and booleans are kept as is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordFormat, "format", "auto", "input format (auto, json, yaml)")
	recordCmd.Flags().BoolVarP(&recordQuiet, "quiet", "q", false, "do not print the summary")
	recordCmd.Flags().StringVar(&recordPrivateOut, "private-out", "", `seal removed values to this file ("auto" for the data directory)`)
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "record")
	defer span.End()

	input, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	format, err := detectFormat(recordFormat, name, input)
	if err != nil {
		return err
	}
	doc, err := decodeRecord(format, input)
	if err != nil {
		return err
	}

	cfg, engine, err := newEngine()
	if err != nil {
		return err
	}
	redacted, _, err := engine.SanitizeStructured(ctx, doc)
	if err != nil {
		return fmt.Errorf("sanitizing record: %w", err)
	}

	if recordPrivateOut != "" {
		path, err := writePrivate(ctx, cfg, engine, recordPrivateOut)
		if err != nil {
			return err
		}
		if !recordQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Private data sealed to %s\n", path)
		}
	}

	out, err := encodeRecord(format, redacted)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}
	if !recordQuiet {
		fmt.Fprintln(cmd.ErrOrStderr(), engine.Summary())
	}
	return nil
}

func detectFormat(flag, name string, input []byte) (string, error) {
	switch flag {
	case "json", "yaml":
		return flag, nil
	case "auto", "":
	default:
		return "", fmt.Errorf("unknown format %q (want auto, json or yaml)", flag)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json", nil
	}
	return "yaml", nil
}

func decodeRecord(format string, input []byte) (any, error) {
	var doc any
	if format == "json" {
		dec := json.NewDecoder(bytes.NewReader(input))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(input, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return doc, nil
}

func encodeRecord(format string, doc any) ([]byte, error) {
	if format == "json" {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding JSON: %w", err)
		}
		return buf.Bytes(), nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return out, nil
}

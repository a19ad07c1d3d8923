package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dativo-io/scrub/internal/config"
	"github.com/dativo-io/scrub/internal/sanitizer"
	"github.com/dativo-io/scrub/internal/vault"
)

// autoPrivateOut makes --private-out pick a file under the data directory.
const autoPrivateOut = "auto"

// newEngine loads configuration and builds an engine from it.
func newEngine() (*config.Config, *sanitizer.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("building rule registry: %w", err)
	}
	return cfg, sanitizer.New(cfg.EngineOptions(reg)...), nil
}

// readInput reads the named file, or stdin when the name is "-" or absent.
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, args[0], nil
}

// writePrivate seals the engine vault to path and returns where it went.
func writePrivate(ctx context.Context, cfg *config.Config, e *sanitizer.Engine, path string) (string, error) {
	if path == autoPrivateOut {
		if err := cfg.EnsureDataDir(); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.VaultDir(), e.ID()+".scrubvault")
	}
	cfg.WarnIfDefaultKey()

	env := vault.NewEnvelope(e.ID(), e.PrivateData())
	sealed, err := vault.Seal(ctx, env, cfg.VaultKey)
	if err != nil {
		return "", fmt.Errorf("sealing private data: %w", err)
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	log.Info().
		Str("engine_id", e.ID()).
		Str("path", path).
		Int("values", env.Total()).
		Msg("private_data_sealed")
	return path, nil
}

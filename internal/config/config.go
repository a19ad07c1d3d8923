// Package config holds operator-level configuration for scrub.
//
// Values come from env vars (SCRUB_*), a config file (scrub.config.yaml)
// and the defaults registered below, merged by Viper. Rule definitions
// themselves live in YAML rule files; this package only says which file to
// load and which rules or categories to switch off.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dativo-io/scrub/internal/registry"
	"github.com/dativo-io/scrub/internal/sanitizer"
	"github.com/dativo-io/scrub/internal/vault"
)

// Viper keys. Each maps to an env var with the SCRUB_ prefix
// (e.g. "vault_key" → SCRUB_VAULT_KEY) and to a YAML field in
// scrub.config.yaml.
const (
	KeyDataDir           = "data_dir"
	KeyRulesFile         = "rules_file"
	KeyDisabledRules     = "disabled_rules"
	KeyEnabledCategories = "enabled_categories"
	KeyCapturePrivate    = "capture_private"
	KeyLeakSweep         = "leak_sweep"
	KeyVaultKey          = "vault_key"
	KeyListenAddr        = "listen_addr"
	KeyRateLimitRPM      = "rate_limit_rpm"
	KeyMaxBodyKB         = "max_body_kb"
)

// Defaults that do not involve key material. The vault key has no baked-in
// default; when unset a per-machine fallback is derived and a warning logged.
const (
	DefaultCapturePrivate = true
	DefaultLeakSweep      = true
	DefaultListenAddr     = ":8085"
	DefaultRateLimitRPM   = 600
	DefaultMaxBodyKB      = 1024
)

// Config holds resolved configuration for a scrub process.
type Config struct {
	DataDir           string   // Base directory for sealed vaults (~/.scrub)
	RulesFile         string   // Optional YAML rule file merged over the embedded rules
	DisabledRules     []string // Rule names to switch off
	EnabledCategories []string // When non-empty, only rules in these categories run
	CapturePrivate    bool     // Store removed values in the engine vault
	LeakSweep         bool     // Replace repeats of captured values after all rules ran
	VaultKey          string   // secretbox key for sealed vault files (32 bytes or 64 hex)
	ListenAddr        string   // HTTP listen address for "scrub serve"
	RateLimitRPM      int      // Requests per minute accepted by the HTTP server
	MaxBodyKB         int      // Maximum HTTP request body

	usingDefaultVaultKey bool
}

// UsingDefaultVaultKey returns true if the vault key was derived (not set explicitly).
func (c *Config) UsingDefaultVaultKey() bool {
	return c.usingDefaultVaultKey
}

// VaultDir returns the directory sealed vaults are written to by default.
func (c *Config) VaultDir() string {
	return filepath.Join(c.DataDir, "vaults")
}

// EnsureDataDir creates the vault directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.VaultDir(), 0o700)
}

// WarnIfDefaultKey logs a warning when the vault key is not explicitly set.
// Suppressed when SCRUB_QUICKSTART=1 or true.
func (c *Config) WarnIfDefaultKey() {
	if isQuickstart() {
		return
	}
	if c.usingDefaultVaultKey {
		log.Warn().Msg("Using generated default SCRUB_VAULT_KEY; set it via env var or config file before sharing sealed vaults")
	}
}

// Registry builds the rule registry described by the configuration.
func (c *Config) Registry() (*registry.Registry, error) {
	return registry.New(
		registry.WithRuleFile(c.RulesFile),
		registry.WithDisabledRules(c.DisabledRules),
		registry.WithEnabledCategories(c.EnabledCategories),
	)
}

// EngineOptions returns the sanitizer options for reg under this configuration.
func (c *Config) EngineOptions(reg *registry.Registry) []sanitizer.Option {
	return []sanitizer.Option{
		sanitizer.WithRegistry(reg),
		sanitizer.WithCapture(c.CapturePrivate),
		sanitizer.WithLeakSweep(c.LeakSweep),
	}
}

func isQuickstart() bool {
	v := os.Getenv("SCRUB_QUICKSTART")
	return v == "1" || v == "true" || v == "TRUE"
}

func init() {
	SetDefaults()
}

// SetDefaults registers the env prefix and default values with Viper.
func SetDefaults() {
	viper.SetEnvPrefix("SCRUB")
	viper.AutomaticEnv()
	viper.SetDefault(KeyCapturePrivate, DefaultCapturePrivate)
	viper.SetDefault(KeyLeakSweep, DefaultLeakSweep)
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
	viper.SetDefault(KeyMaxBodyKB, DefaultMaxBodyKB)
}

// Load reads configuration from Viper (which merges env vars, config
// file, and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           resolveDataDir(),
		RulesFile:         viper.GetString(KeyRulesFile),
		DisabledRules:     stringList(KeyDisabledRules),
		EnabledCategories: stringList(KeyEnabledCategories),
		CapturePrivate:    viper.GetBool(KeyCapturePrivate),
		LeakSweep:         viper.GetBool(KeyLeakSweep),
		VaultKey:          viper.GetString(KeyVaultKey),
		ListenAddr:        viper.GetString(KeyListenAddr),
		RateLimitRPM:      viper.GetInt(KeyRateLimitRPM),
		MaxBodyKB:         viper.GetInt(KeyMaxBodyKB),
	}

	if cfg.VaultKey == "" {
		cfg.VaultKey = deriveDefaultKey(cfg.DataDir, "vault-sealing")
		cfg.usingDefaultVaultKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scrub"
	}
	return filepath.Join(home, ".scrub")
}

// stringList reads a list that may come from YAML or from a comma-separated
// env var such as SCRUB_DISABLED_RULES=ipv4,email.
func stringList(key string) []string {
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// deriveDefaultKey produces a deterministic 32-byte fallback key (hex encoded)
// from the data directory path and a salt. It is not a secret; it only lets
// "scrub text --private-out" work before an operator configures a key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("scrub:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if _, err := vault.ResolveKey(c.VaultKey); err != nil {
		return fmt.Errorf("vault_key: %w; set SCRUB_VAULT_KEY", err)
	}
	for _, cat := range c.EnabledCategories {
		if !knownCategory(cat) {
			return fmt.Errorf("enabled_categories: %w: %q", registry.ErrUnknownCategory, cat)
		}
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("rate_limit_rpm must be positive")
	}
	if c.MaxBodyKB <= 0 {
		return fmt.Errorf("max_body_kb must be positive")
	}
	return nil
}

func knownCategory(name string) bool {
	for _, c := range registry.Categories() {
		if string(c) == name {
			return true
		}
	}
	return false
}

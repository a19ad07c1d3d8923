package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dativo-io/scrub/internal/testutil"
)

// runCLI executes the root command with fresh flag state and returns
// stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("SCRUB_DATA_DIR", t.TempDir())
	t.Setenv("SCRUB_VAULT_KEY", testutil.TestVaultKey)
	t.Setenv("SCRUB_QUICKSTART", "1")

	textJSON, textQuiet, textPrivateOut = false, false, ""
	recordFormat, recordQuiet, recordPrivateOut = "auto", false, ""
	serveAddr = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	expected := []string{"version", "text", "record", "rules", "vault", "serve"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestRootCommand_UsageOutput(t *testing.T) {
	usage := rootCmd.UsageString()
	assert.Contains(t, usage, "text")
	assert.Contains(t, usage, "record")
	assert.Contains(t, usage, "serve")
	assert.Contains(t, rootCmd.Long, "[REDACTED-EMAIL]")
}

func TestVersionVars_HaveDefaults(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "none", Commit)
	assert.Equal(t, "unknown", BuildDate)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scrub dev")
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "rules", "verbose", "log-level", "log-format", "otel"} {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should be registered", name)
		})
	}
}

func TestRootCommand_UseAndShort(t *testing.T) {
	assert.Equal(t, "scrub", rootCmd.Use)
	assert.Equal(t, "Redact sensitive data before public disclosure", rootCmd.Short)
}

func TestPackageLevelTracer_IsNotNil(t *testing.T) {
	assert.NotNil(t, tracer, "package-level tracer should be initialized")
}

func TestParseAPIKeys(t *testing.T) {
	assert.Nil(t, parseAPIKeys(""))
	assert.Equal(t, []string{"a", "b"}, parseAPIKeys(" a, ,b "))
}

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dativo-io/scrub/internal/testutil"
)

func TestTextCommand_Stdin(t *testing.T) {
	stdout, stderr, err := runCLI(t, testutil.LeakyReport, "text")
	require.NoError(t, err)
	assert.Equal(t, testutil.SanitizedReport, stdout)
	assert.Contains(t, stderr, "Sanitization Summary:")
	assert.Contains(t, stderr, "Total items redacted: 4")
}

func TestTextCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("ping admin@contoso.com"), 0o600))

	stdout, stderr, err := runCLI(t, "", "text", "--quiet", path)
	require.NoError(t, err)
	assert.Equal(t, "ping [REDACTED-EMAIL]", stdout)
	assert.Empty(t, stderr)
}

func TestTextCommand_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, testutil.LeakyReport, "text", "--json")
	require.NoError(t, err)

	var out textOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, testutil.SanitizedReport, out.Redacted)
	assert.Equal(t, testutil.LeakyReportLog, out.Log)
	assert.Contains(t, out.Summary, "Total items redacted: 4")
	assert.Empty(t, out.Vault)
}

func TestTextCommand_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, "", "text", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestTextCommand_PrivateOutRoundTrip(t *testing.T) {
	sealed := filepath.Join(t.TempDir(), "report.scrubvault")

	_, stderr, err := runCLI(t, testutil.LeakyReport, "text", "--private-out", sealed)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Private data sealed to "+sealed)

	info, err := os.Stat(sealed)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stdout, _, err := runCLI(t, "", "vault", "open", sealed)
	require.NoError(t, err)

	var env struct {
		Version int                 `json:"version"`
		Data    map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, []string{"admin@contoso.com"}, env.Data["emails"])
	assert.Equal(t, []string{"10.1.2.3"}, env.Data["ip_addresses"])
	assert.Contains(t, env.Data["credentials"], "hunter22")
}

func TestVaultOpen_WrongKey(t *testing.T) {
	sealed := filepath.Join(t.TempDir(), "report.scrubvault")
	_, _, err := runCLI(t, "mail a@example.com", "text", "--private-out", sealed)
	require.NoError(t, err)

	t.Setenv("SCRUB_VAULT_KEY", testutil.TestVaultKeyHex)
	rootCmd.SetArgs([]string{"vault", "open", sealed})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening")
}

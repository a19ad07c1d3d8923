package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRecordCommand_JSON(t *testing.T) {
	input := `{"user":{"email":"a@example.com","age":42,"ratio":0.1},"hosts":["10.1.2.3","public"],"note":"<ok>"}`

	stdout, stderr, err := runCLI(t, input, "record")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[REDACTED-EMAIL]", out["user"].(map[string]any)["email"])
	assert.Equal(t, float64(42), out["user"].(map[string]any)["age"])
	assert.Equal(t, []any{"[REDACTED-IP]", "public"}, out["hosts"])
	assert.Contains(t, stdout, `"ratio": 0.1`)
	assert.Contains(t, stdout, `"note": "<ok>"`, "HTML characters are not escaped")
	assert.Contains(t, stderr, "Total items redacted: 2")
}

func TestRecordCommand_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incident.yml")
	doc := "reporter: a@example.com\nsteps:\n  - connect to 10.1.2.3\n  - retry\ncount: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	stdout, _, err := runCLI(t, "", "record", "--quiet", path)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[REDACTED-EMAIL]", out["reporter"])
	assert.Equal(t, []any{"connect to [REDACTED-IP]", "retry"}, out["steps"])
	assert.Equal(t, 3, out["count"])
}

func TestRecordCommand_InvalidInput(t *testing.T) {
	_, _, err := runCLI(t, "{not json", "record", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing JSON")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		file    string
		input   string
		want    string
		wantErr bool
	}{
		{"explicit json", "json", "x.yaml", "", "json", false},
		{"explicit yaml", "yaml", "", "{}", "yaml", false},
		{"json extension", "auto", "a.JSON", "", "json", false},
		{"yml extension", "auto", "a.yml", "", "yaml", false},
		{"sniff object", "auto", "", "  {\"a\":1}", "json", false},
		{"sniff array", "auto", "", "[1]", "json", false},
		{"sniff yaml", "auto", "", "a: 1", "yaml", false},
		{"unknown", "toml", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectFormat(tt.flag, tt.file, []byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

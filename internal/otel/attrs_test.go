package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeAttributes(t *testing.T) {
	tests := []struct {
		name     string
		engineID string
		kind     string
		capture  bool
	}{
		{"text with capture", "e-1", "text", true},
		{"structured without capture", "e-2", "structured", false},
		{"zero values", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := SanitizeAttributes(tt.engineID, tt.kind, tt.capture)
			require.Len(t, attrs, 3)

			assert.Equal(t, "scrub.engine_id", string(attrs[0].Key))
			assert.Equal(t, tt.engineID, attrs[0].Value.AsString())

			assert.Equal(t, "scrub.input_kind", string(attrs[1].Key))
			assert.Equal(t, tt.kind, attrs[1].Value.AsString())

			assert.Equal(t, "scrub.capture", string(attrs[2].Key))
			assert.Equal(t, tt.capture, attrs[2].Value.AsBool())
		})
	}
}

func TestResultAttributes(t *testing.T) {
	attrs := ResultAttributes(3, 7)
	require.Len(t, attrs, 2)
	assert.Equal(t, "scrub.rules_fired", string(attrs[0].Key))
	assert.Equal(t, int64(3), attrs[0].Value.AsInt64())
	assert.Equal(t, "scrub.redactions", string(attrs[1].Key))
	assert.Equal(t, int64(7), attrs[1].Value.AsInt64())
}

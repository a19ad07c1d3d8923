package otel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dativo-io/scrub/internal/requestctx"
)

func TestTraceContextFrom_NoSpan(t *testing.T) {
	traceID, spanID := TraceContextFrom(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}

func TestLogTraceFields_NoPanic(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ev := logger.Info()
	LogTraceFields(context.Background())(ev)
}

func TestLogTraceFields_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := requestctx.SetRequestID(context.Background(), "req-42")

	logger.Info().Func(LogTraceFields(ctx)).Msg("hello")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "req-42", fields["request_id"])
	assert.NotContains(t, fields, "trace_id")
}

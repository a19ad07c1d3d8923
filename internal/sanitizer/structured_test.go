package sanitizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dativo-io/scrub/internal/registry"
)

func sampleRecord() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"email":  "a@example.com",
			"note":   "ok",
			"age":    42,
			"active": true,
		},
		"hosts": []any{"10.1.2.3", "public", nil},
		"tags":  []string{"x"},
		"env":   map[string]string{"PASSWORD": "password: s3cret"},
	}
}

func TestSanitizeStructured(t *testing.T) {
	e := New()
	input := sampleRecord()

	out, log, err := e.SanitizeStructured(context.Background(), input)
	require.NoError(t, err)

	want := map[string]any{
		"user": map[string]any{
			"email":  "[REDACTED-EMAIL]",
			"note":   "ok",
			"age":    42,
			"active": true,
		},
		"hosts": []any{"[REDACTED-IP]", "public", nil},
		"tags":  []string{"x"},
		"env":   map[string]string{"PASSWORD": "password: [REDACTED-PASSWORD]"},
	}
	assert.Equal(t, want, out)

	// Leaves are visited in sorted key order: env, hosts, tags, user.
	assert.Equal(t, []string{
		"Removed 1 password(s)",
		"Removed 1 IP address(es)",
		"Removed 1 email address(es)",
	}, log.Strings())
	assert.Equal(t, log, e.Log())

	assert.Equal(t, sampleRecord(), input, "input must not be mutated")

	vault := e.PrivateData()
	assert.Equal(t, []string{"s3cret"}, vault[registry.CategoryCredentials])
	assert.Equal(t, []string{"10.1.2.3"}, vault[registry.CategoryIPAddresses])
	assert.Equal(t, []string{"a@example.com"}, vault[registry.CategoryEmails])
}

func TestSanitizeStructured_SmallRecord(t *testing.T) {
	out, log, err := New().SanitizeStructured(context.Background(), map[string]any{
		"a": "contact x@y.com",
		"b": []any{"192.168.1.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": "contact [REDACTED-EMAIL]",
		"b": []any{"[REDACTED-IP]"},
	}, out)
	assert.Equal(t, []string{"Removed 1 email address(es)", "Removed 1 IP address(es)"}, log.Strings())
}

func TestSanitizeStructured_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"string", "mail a@example.com", "mail [REDACTED-EMAIL]"},
		{"int", 7, 7},
		{"float", 1.5, 1.5},
		{"bool", false, false},
		{"nil", nil, nil},
		{"empty slice", []any{}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := New().SanitizeStructured(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

type hostName string

func TestSanitizeStructured_TypedContainers(t *testing.T) {
	e := New()
	ip := "10.9.8.7"
	input := map[string]any{
		"headers": map[string][]string{"From": {"alice@contoso.com"}, "Accept": {"*/*"}},
		"items":   []map[string]any{{"ip": "10.1.2.3"}, {"n": 1}},
		"pair":    [2]string{"ok", "b@example.com"},
		"host":    hostName("x@example.org"),
		"ptr":     &ip,
	}

	out, log, err := e.SanitizeStructured(context.Background(), input)
	require.NoError(t, err)

	got := out.(map[string]any)
	assert.Equal(t, map[string][]string{"From": {"[REDACTED-EMAIL]"}, "Accept": {"*/*"}}, got["headers"])
	assert.Equal(t, []map[string]any{{"ip": "[REDACTED-IP]"}, {"n": 1}}, got["items"])
	assert.Equal(t, [2]string{"ok", "[REDACTED-EMAIL]"}, got["pair"])
	assert.Equal(t, hostName("[REDACTED-EMAIL]"), got["host"])
	require.IsType(t, (*string)(nil), got["ptr"])
	assert.Equal(t, "[REDACTED-IP]", *got["ptr"].(*string))
	assert.Equal(t, "10.9.8.7", ip, "input must not be mutated")

	assert.Len(t, log, 5)
	assert.Equal(t, 5, log.Total())
	assert.Len(t, e.PrivateData()[registry.CategoryEmails], 3)
	assert.Len(t, e.PrivateData()[registry.CategoryIPAddresses], 2)
}

func TestSanitizeStructured_TypedCycle(t *testing.T) {
	type node map[string][]any
	n := node{"a": {"x@example.com"}}
	n["a"] = append(n["a"], n)

	_, _, err := New().SanitizeStructured(context.Background(), n)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "$.a[1]", cycleErr.Path)
}

func TestSanitizeStructured_NilContainersStayNil(t *testing.T) {
	input := map[string]any{
		"m":  map[string]any(nil),
		"s":  []any(nil),
		"ss": []string(nil),
		"h":  map[string][]string(nil),
	}
	out, log, err := New().SanitizeStructured(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, log)

	got := out.(map[string]any)
	assert.Nil(t, got["m"])
	assert.IsType(t, map[string]any(nil), got["m"])
	assert.Nil(t, got["s"])
	assert.IsType(t, []any(nil), got["s"])
	assert.Nil(t, got["ss"])
	assert.Nil(t, got["h"])
	assert.IsType(t, map[string][]string(nil), got["h"])
}

func TestSanitizeStructured_AnyKeyedMaps(t *testing.T) {
	input := map[any]any{1: "10.1.2.3", "k": []any{"b@example.com"}}
	out, log, err := New().SanitizeStructured(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, map[any]any{1: "[REDACTED-IP]", "k": []any{"[REDACTED-EMAIL]"}}, out)
	assert.Len(t, log, 2)
}

func TestSanitizeStructured_MapCycle(t *testing.T) {
	e := New()
	rec := map[string]any{"a": "x@example.com"}
	rec["self"] = rec

	out, log, err := e.SanitizeStructured(context.Background(), rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleDetected))
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, "$.self", cycleErr.Path)
	assert.Nil(t, out)
	assert.Nil(t, log)

	// Nothing from the partial walk may be committed.
	assert.Zero(t, e.PrivateData().Total())
	assert.Equal(t, "No sanitization performed", e.Summary())
}

func TestSanitizeStructured_SliceCycle(t *testing.T) {
	s := make([]any, 2)
	s[0] = "10.1.2.3"
	s[1] = s

	_, _, err := New().SanitizeStructured(context.Background(), s)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "$[1]", cycleErr.Path)
}

func TestSanitizeStructured_NestedCycle(t *testing.T) {
	inner := map[string]any{}
	outer := map[string]any{"list": []any{inner}}
	inner["back"] = outer

	_, _, err := New().SanitizeStructured(context.Background(), outer)
	require.ErrorIs(t, err, ErrCycleDetected)
	assert.Contains(t, err.Error(), "$.list[0].back")
}

func TestSanitizeStructured_FailureKeepsPreviousState(t *testing.T) {
	e := New()
	ctx := context.Background()
	e.SanitizeText(ctx, "mail a@example.com")
	before := e.Summary()

	rec := map[string]any{"ip": "10.1.2.3"}
	rec["self"] = rec
	_, _, err := e.SanitizeStructured(ctx, rec)
	require.Error(t, err)

	assert.Equal(t, before, e.Summary())
	assert.Equal(t, []string{"Removed 1 email address(es)"}, e.Log().Strings())
	assert.Empty(t, e.PrivateData()[registry.CategoryIPAddresses])
}

func TestSanitizeStructured_SharedReferencesAreNotCycles(t *testing.T) {
	shared := map[string]any{"e": "a@example.com"}
	rec := map[string]any{"x": shared, "y": shared}

	e := New()
	out, log, err := e.SanitizeStructured(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"x": map[string]any{"e": "[REDACTED-EMAIL]"},
		"y": map[string]any{"e": "[REDACTED-EMAIL]"},
	}, out)
	assert.Len(t, log, 2)
	assert.Len(t, e.PrivateData()[registry.CategoryEmails], 2)
}

func TestSanitizeStructured_Idempotent(t *testing.T) {
	once, _, err := New().SanitizeStructured(context.Background(), sampleRecord())
	require.NoError(t, err)
	twice, log, err := New().SanitizeStructured(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Empty(t, log)
}

func TestSanitizeStructured_WithoutCapture(t *testing.T) {
	e := New()
	_, log, err := e.SanitizeStructured(context.Background(), sampleRecord(), WithoutCapture())
	require.NoError(t, err)
	assert.Len(t, log, 3)
	assert.Zero(t, e.PrivateData().Total())
}

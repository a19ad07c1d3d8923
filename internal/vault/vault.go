// Package vault seals the private data collected by a sanitizer engine so it
// can travel next to a redacted report and be opened only by key holders.
//
// A sealed vault is a 24-byte random nonce followed by a NaCl secretbox
// (XSalsa20-Poly1305) of the JSON envelope.
package vault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/nacl/secretbox"

	scrubotel "github.com/dativo-io/scrub/internal/otel"
	"github.com/dativo-io/scrub/internal/sanitizer"
)

var (
	// ErrInvalidKey is returned when the vault key is not 32 raw bytes or
	// 64 hex characters.
	ErrInvalidKey = errors.New("invalid vault key")
	// ErrDecrypt is returned when a sealed vault fails authentication,
	// either because the key is wrong or the data was modified.
	ErrDecrypt = errors.New("vault decryption failed")
	// ErrUnsupportedVersion is returned for envelopes written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported vault version")
)

// EnvelopeVersion is the current envelope format.
const EnvelopeVersion = 1

const nonceSize = 24

var tracer = scrubotel.Tracer("github.com/dativo-io/scrub/internal/vault")

// Envelope is the plaintext form of a sealed vault.
type Envelope struct {
	Version   int                 `json:"version"`
	EngineID  string              `json:"engine_id"`
	CreatedAt time.Time           `json:"created_at"`
	Data      map[string][]string `json:"data"`
}

// NewEnvelope snapshots an engine vault.
func NewEnvelope(engineID string, data sanitizer.Vault) *Envelope {
	env := &Envelope{
		Version:   EnvelopeVersion,
		EngineID:  engineID,
		CreatedAt: time.Now().UTC(),
		Data:      make(map[string][]string, len(data)),
	}
	for category, values := range data {
		cp := make([]string, len(values))
		copy(cp, values)
		env.Data[string(category)] = cp
	}
	return env
}

// Total is the number of values in the envelope.
func (e *Envelope) Total() int {
	n := 0
	for _, values := range e.Data {
		n += len(values)
	}
	return n
}

// ResolveKey interprets key as 32 raw bytes or 64 hex characters.
func ResolveKey(key string) (*[32]byte, error) {
	var out [32]byte
	if len(key) == 64 {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("64-character vault key must be hex: %w", ErrInvalidKey)
		}
		copy(out[:], decoded)
		return &out, nil
	}
	if len(key) == 32 {
		copy(out[:], key)
		return &out, nil
	}
	return nil, fmt.Errorf("vault key must be 32 bytes or 64 hex characters (got %d): %w", len(key), ErrInvalidKey)
}

// Seal encrypts env with key.
func Seal(ctx context.Context, env *Envelope, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "vault.seal")
	defer span.End()

	k, err := ResolveKey(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid key")
		return nil, err
	}

	plaintext, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling vault envelope: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, k)
	span.SetAttributes(
		scrubotel.ScrubEngineID.String(env.EngineID),
		attribute.Int("vault.values", env.Total()),
		attribute.Int("vault.sealed_bytes", len(sealed)),
	)
	return sealed, nil
}

// Open decrypts a sealed vault.
func Open(ctx context.Context, sealed []byte, key string) (*Envelope, error) {
	_, span := tracer.Start(ctx, "vault.open")
	defer span.End()

	k, err := ResolveKey(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid key")
		return nil, err
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		span.SetStatus(codes.Error, "truncated")
		return nil, fmt.Errorf("sealed vault too short (%d bytes): %w", len(sealed), ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, k)
	if !ok {
		span.SetStatus(codes.Error, "authentication failed")
		return nil, ErrDecrypt
	}

	var env Envelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, fmt.Errorf("decoding vault envelope: %w", err)
	}
	if env.Version > EnvelopeVersion {
		return nil, fmt.Errorf("version %d: %w", env.Version, ErrUnsupportedVersion)
	}
	span.SetAttributes(scrubotel.ScrubEngineID.String(env.EngineID))
	return &env, nil
}

// Package sanitizer redacts sensitive content from free-form text and
// structured records before public disclosure.
//
// An Engine applies the registry rules in priority order (credentials,
// cloud resource identifiers, internal locations, PII), each rule running on
// text already redacted by the rules before it. It keeps the log of the
// last call and a private vault of every removed value until Reset.
//
// Engines are not safe for concurrent use. Create one per document; the
// registry they read from is shared and immutable.
package sanitizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	scrubotel "github.com/dativo-io/scrub/internal/otel"
	"github.com/dativo-io/scrub/internal/registry"
)

var tracer = scrubotel.Tracer("github.com/dativo-io/scrub/internal/sanitizer")

// minSweepLen is the shortest captured value the leak sweep will chase
// through the rest of the text.
const minSweepLen = 4

// Engine holds per-document sanitization state.
type Engine struct {
	id        string
	rules     []registry.Rule
	capture   bool
	leakSweep bool

	log        Log
	vault      Vault
	runs       int
	redactions int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the rule registry. Defaults to registry.Default().
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.rules = reg.Rules()
		}
	}
}

// WithCapture sets whether calls store removed values in the vault unless
// overridden per call. Defaults to true.
func WithCapture(enabled bool) Option {
	return func(e *Engine) { e.capture = enabled }
}

// WithLeakSweep toggles the final pass that replaces further literal
// occurrences of values captured during the call. Defaults to true.
func WithLeakSweep(enabled bool) Option {
	return func(e *Engine) { e.leakSweep = enabled }
}

// New creates an engine with an empty log and vault.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:        uuid.NewString(),
		rules:     registry.Default().Rules(),
		capture:   true,
		leakSweep: true,
		vault:     newVault(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ID identifies the engine in logs and sealed vault files.
func (e *Engine) ID() string { return e.id }

// CallOption adjusts a single sanitize call.
type CallOption func(*callConfig)

type callConfig struct {
	capture bool
}

// WithoutCapture keeps removed values of this call out of the vault. The
// log is still produced.
func WithoutCapture() CallOption {
	return func(c *callConfig) { c.capture = false }
}

func (e *Engine) callConfig(opts []CallOption) callConfig {
	cfg := callConfig{capture: e.capture}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// found is a value removed by a rule during a call.
type found struct {
	category    registry.Category
	placeholder string
	value       string
}

type result struct {
	text  string
	log   Log
	found []found
}

// SanitizeText redacts text and returns it with the log of this call. The
// engine log is replaced, and removed values are appended to the vault
// unless capture is disabled. It never fails; text without sensitive
// content is returned unchanged with an empty log.
func (e *Engine) SanitizeText(ctx context.Context, text string, opts ...CallOption) (string, Log) {
	ctx, span := tracer.Start(ctx, "sanitizer.sanitize_text")
	defer span.End()

	cfg := e.callConfig(opts)
	e.log = nil
	e.runs++

	if text == "" {
		recordCall(ctx, "text", nil)
		return text, Log{}
	}

	res := e.redact(text)
	e.commit(res.log, res.found, cfg.capture)
	recordCall(ctx, "text", res.log)

	span.SetAttributes(scrubotel.SanitizeAttributes(e.id, "text", cfg.capture)...)
	span.SetAttributes(scrubotel.ScrubInputBytes.Int(len(text)))
	span.SetAttributes(scrubotel.ResultAttributes(len(res.log), res.log.Total())...)
	e.debugLog(ctx, "text", res.log)

	return res.text, res.log.clone()
}

// redact runs every rule over text without touching engine state.
func (e *Engine) redact(text string) result {
	res := result{text: text, log: Log{}}

	for i := range e.rules {
		rule := &e.rules[i]
		matches := rule.Find(res.text)
		if len(matches) == 0 {
			continue
		}
		matches = dropGuarded(matches, registry.PlaceholderPattern.FindAllStringIndex(res.text, -1), enclosing(rule))
		if len(matches) == 0 {
			continue
		}

		res.text = replaceSpans(res.text, matches, rule.Placeholder)
		res.log = append(res.log, LogEntry{
			Rule:     rule.Name,
			Category: rule.Category,
			Noun:     rule.Noun,
			Count:    len(matches),
		})
		for _, m := range matches {
			res.found = append(res.found, found{
				category:    rule.Category,
				placeholder: rule.Placeholder,
				value:       m.Value,
			})
		}
	}

	if e.leakSweep && len(res.found) > 0 {
		res.text = sweep(res.text, res.found)
	}
	return res
}

func (e *Engine) commit(entries Log, values []found, capture bool) {
	e.log = entries.clone()
	e.redactions += entries.Total()
	if !capture {
		return
	}
	for _, f := range values {
		e.vault[f.category] = append(e.vault[f.category], f.value)
	}
}

func (e *Engine) debugLog(ctx context.Context, kind string, entries Log) {
	for _, entry := range entries {
		log.Debug().
			Str("engine_id", e.id).
			Str("rule", entry.Rule).
			Str("category", string(entry.Category)).
			Int("count", entry.Count).
			Func(scrubotel.LogTraceFields(ctx)).
			Msg("rule fired")
	}
	log.Debug().
		Str("engine_id", e.id).
		Str("kind", kind).
		Int("rules_fired", len(entries)).
		Int("redactions", entries.Total()).
		Func(scrubotel.LogTraceFields(ctx)).
		Msg("sanitize complete")
}

// dropGuarded removes matches overlapping an existing placeholder. Both
// inputs are sorted by start offset and free of internal overlaps.
//
// A match that fully encloses placeholders survives when enclose accepts
// it, so a connection string with an already-redacted token inside is still
// consumed as a unit. A nil enclose drops every overlapping match.
func dropGuarded(matches []registry.Match, guards [][]int, enclose func(string) bool) []registry.Match {
	if len(guards) == 0 {
		return matches
	}
	kept := matches[:0]
	g := 0
	for _, m := range matches {
		for g < len(guards) && guards[g][1] <= m.Start {
			g++
		}
		if g == len(guards) || guards[g][0] >= m.End {
			kept = append(kept, m)
			continue
		}
		if enclose != nil && enclosesGuards(m, guards[g:]) && enclose(m.Value) {
			kept = append(kept, m)
		}
	}
	return kept
}

// enclosesGuards reports whether every guard overlapping m lies inside it.
func enclosesGuards(m registry.Match, guards [][]int) bool {
	for _, gd := range guards {
		if gd[0] >= m.End {
			break
		}
		if gd[0] < m.Start || gd[1] > m.End {
			return false
		}
	}
	return true
}

// enclosing returns the enclose check for whole-match rules: the span must
// still match the rule once its placeholders are removed. This keeps a
// label wrapped around a lone placeholder, such as
// "Password=[REDACTED-PASSWORD]", from being redacted a second time.
func enclosing(rule *registry.Rule) func(string) bool {
	if !rule.WholeMatch() {
		return nil
	}
	return func(span string) bool {
		return rule.Pattern.MatchString(registry.PlaceholderPattern.ReplaceAllString(span, ""))
	}
}

func replaceSpans(text string, matches []registry.Match, placeholder string) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(placeholder)
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// sweep replaces literal occurrences of captured values that no rule
// matched in place, e.g. a password repeated later in prose without its
// label. Occurrences inside placeholders are left alone.
func sweep(text string, values []found) string {
	seen := make(map[string]bool, len(values))
	var pending []found
	for _, f := range values {
		if len(f.value) < minSweepLen || seen[f.value] {
			continue
		}
		seen[f.value] = true
		pending = append(pending, f)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return len(pending[i].value) > len(pending[j].value)
	})

	for _, f := range pending {
		if !strings.Contains(text, f.value) {
			continue
		}
		guards := registry.PlaceholderPattern.FindAllStringIndex(text, -1)
		var spans []registry.Match
		for off := 0; off < len(text); {
			idx := strings.Index(text[off:], f.value)
			if idx < 0 {
				break
			}
			start := off + idx
			spans = append(spans, registry.Match{Start: start, End: start + len(f.value)})
			off = start + len(f.value)
		}
		spans = dropGuarded(spans, guards, nil)
		if len(spans) > 0 {
			text = replaceSpans(text, spans, f.placeholder)
		}
	}
	return text
}

// Log returns a copy of the log of the last call.
func (e *Engine) Log() Log { return e.log.clone() }

// PrivateData returns a deep copy of the vault. Every category is present,
// empty when nothing was removed.
func (e *Engine) PrivateData() Vault { return e.vault.clone() }

// Reset clears the log and the vault.
func (e *Engine) Reset() {
	e.log = nil
	e.vault = newVault()
	e.runs = 0
	e.redactions = 0
}

// Summary renders the current log and the number of values redacted since
// the engine was created or reset. With capture on, that number equals the
// vault total.
func (e *Engine) Summary() string {
	if e.runs == 0 {
		return "No sanitization performed"
	}
	if len(e.log) == 0 {
		return "No sanitization performed: no sensitive data found"
	}

	lines := []string{"Sanitization Summary:", ""}
	for _, entry := range e.log {
		lines = append(lines, "  - "+entry.String())
	}
	lines = append(lines, "", fmt.Sprintf("Total items redacted: %d", e.redactions))
	return strings.Join(lines, "\n")
}

// SanitizeForDisclosure redacts text with a fresh engine on the default
// registry and returns the redacted text and its summary.
func SanitizeForDisclosure(ctx context.Context, text string) (string, string) {
	e := New()
	redacted, _ := e.SanitizeText(ctx, text)
	return redacted, e.Summary()
}

package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys for sanitization calls. None of them ever carry a
// redacted value.
const (
	ScrubEngineID   = attribute.Key("scrub.engine_id")
	ScrubInputKind  = attribute.Key("scrub.input_kind") // "text" or "structured"
	ScrubInputBytes = attribute.Key("scrub.input_bytes")
	ScrubLeaves     = attribute.Key("scrub.leaves")

	ScrubRulesFired = attribute.Key("scrub.rules_fired")
	ScrubRedactions = attribute.Key("scrub.redactions")
	ScrubCapture    = attribute.Key("scrub.capture")
)

// SanitizeAttributes creates the standard attributes for a sanitize call.
func SanitizeAttributes(engineID, kind string, capture bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		ScrubEngineID.String(engineID),
		ScrubInputKind.String(kind),
		ScrubCapture.Bool(capture),
	}
}

// ResultAttributes creates attributes describing what a call removed.
func ResultAttributes(rulesFired, redactions int) []attribute.KeyValue {
	return []attribute.KeyValue{
		ScrubRulesFired.Int(rulesFired),
		ScrubRedactions.Int(redactions),
	}
}

// Package patterns provides the embedded default detection rules.
// disclosure.yaml lists rules grouped by priority bucket; order within a
// bucket is significant (most specific token shape first).
package patterns

import _ "embed"

//go:embed disclosure.yaml
var disclosureYAML []byte

// DisclosureYAML returns the embedded default rule definitions.
func DisclosureYAML() []byte { return disclosureYAML }

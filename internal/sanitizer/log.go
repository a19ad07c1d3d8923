package sanitizer

import (
	"fmt"

	"github.com/dativo-io/scrub/internal/registry"
)

// LogEntry records that one rule fired Count times during a call.
type LogEntry struct {
	Rule     string            `json:"rule"`
	Category registry.Category `json:"category"`
	Noun     string            `json:"noun"`
	Count    int               `json:"count"`
}

// String renders the entry as "Removed <count> <noun>".
func (e LogEntry) String() string {
	return fmt.Sprintf("Removed %d %s", e.Count, e.Noun)
}

// Log is the ordered sanitization log of a call.
type Log []LogEntry

// Strings renders every entry.
func (l Log) Strings() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.String()
	}
	return out
}

// Total sums the counts of every entry.
func (l Log) Total() int {
	n := 0
	for _, e := range l {
		n += e.Count
	}
	return n
}

func (l Log) clone() Log {
	out := make(Log, len(l))
	copy(out, l)
	return out
}

// Vault maps each category to the raw values removed from sanitized text,
// in the order they were found. Duplicates are kept so counts reconcile
// with the log.
type Vault map[registry.Category][]string

func newVault() Vault {
	v := make(Vault, len(registry.Categories()))
	for _, c := range registry.Categories() {
		v[c] = []string{}
	}
	return v
}

func (v Vault) clone() Vault {
	out := make(Vault, len(v))
	for c, values := range v {
		cp := make([]string, len(values))
		copy(cp, values)
		out[c] = cp
	}
	return out
}

// Total is the number of values across all categories.
func (v Vault) Total() int {
	n := 0
	for _, values := range v {
		n += len(values)
	}
	return n
}

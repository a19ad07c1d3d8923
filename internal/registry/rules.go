package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dativo-io/scrub/patterns"
)

// RuleFile is the top-level YAML structure for a rule definition file.
type RuleFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is the on-disk form of a detection rule.
type RuleConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Bucket      string   `yaml:"bucket" json:"bucket"`
	Category    string   `yaml:"category" json:"category"`
	Placeholder string   `yaml:"placeholder" json:"placeholder"`
	Noun        string   `yaml:"noun" json:"noun"`
	Regex       string   `yaml:"regex" json:"regex"`
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Validator   string   `yaml:"validator,omitempty" json:"validator,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// isEnabled returns true if the rule is enabled (defaults to true when nil).
func (r *RuleConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ParseRuleFile parses rule YAML bytes into a RuleFile.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule YAML: %w", err)
	}
	return &rf, nil
}

// LoadRuleFile reads and parses a rule YAML file from disk.
// Returns nil (not an error) if the file does not exist, so an unset or
// absent override file is a no-op.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}

// DefaultRules returns the built-in rules parsed from the embedded
// disclosure.yaml. This is the first layer in the merge chain.
func DefaultRules() ([]RuleConfig, error) {
	rf, err := ParseRuleFile(patterns.DisclosureYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded rules: %w", err)
	}
	return rf.Rules, nil
}

// MergeRules merges rule layers in order. Later layers override earlier
// ones by matching on Name, keeping the original position; new rules are
// appended.
func MergeRules(layers ...[]*RuleConfig) []RuleConfig {
	index := make(map[string]int)
	var merged []RuleConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if rc == nil {
				continue
			}
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = *rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, *rc)
			}
		}
	}

	return merged
}

func toPtrSlice(configs []RuleConfig) []*RuleConfig {
	ptrs := make([]*RuleConfig, len(configs))
	for i := range configs {
		ptrs[i] = &configs[i]
	}
	return ptrs
}

// FilterRules applies category and name filters to a rule list.
// If enabledCategories is non-empty only rules in those categories are
// kept. Rules named in disabledRules are then removed.
func FilterRules(rules []RuleConfig, enabledCategories, disabledRules []string) []RuleConfig {
	result := rules

	if len(enabledCategories) > 0 {
		allowed := make(map[string]bool, len(enabledCategories))
		for _, c := range enabledCategories {
			allowed[c] = true
		}
		var filtered []RuleConfig
		for _, r := range result {
			if allowed[r.Category] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabledRules) > 0 {
		blocked := make(map[string]bool, len(disabledRules))
		for _, n := range disabledRules {
			blocked[n] = true
		}
		var filtered []RuleConfig
		for _, r := range result {
			if !blocked[r.Name] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// Package registry holds the ordered set of detection rules used by the
// sanitizer. Rules are declared in YAML (embedded defaults plus optional
// overrides), compiled once, and shared read-only by every engine.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var (
	// ErrUnknownBucket is returned when a rule names a bucket other than
	// credentials, cloud, internal or pii.
	ErrUnknownBucket = errors.New("unknown priority bucket")
	// ErrUnknownCategory is returned when a rule names a vault category
	// that does not exist.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownValidator is returned when a rule references a validator
	// that is not registered.
	ErrUnknownValidator = errors.New("unknown validator")
	// ErrTooManyGroups is returned when a rule regex has more than one
	// capture group.
	ErrTooManyGroups = errors.New("rule regex must have at most one capture group")
	// ErrInvalidPlaceholder is returned when a placeholder does not have the
	// [REDACTED-...] shape the engine relies on to avoid re-matching.
	ErrInvalidPlaceholder = errors.New("invalid placeholder")
	// ErrDuplicateRule is returned when two compiled rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")
)

// PlaceholderPattern matches every placeholder a rule may emit. The engine
// never redacts a span overlapping one of these.
var PlaceholderPattern = regexp.MustCompile(`\[REDACTED-[A-Z0-9-]+\]`)

// Bucket is a rule priority. Lower buckets run first.
type Bucket int

const (
	BucketCredentials Bucket = iota
	BucketCloud
	BucketInternal
	BucketPII
)

var bucketNames = [...]string{"credentials", "cloud", "internal", "pii"}

func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return fmt.Sprintf("bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// ParseBucket converts a bucket name to a Bucket.
func ParseBucket(s string) (Bucket, error) {
	for i, name := range bucketNames {
		if name == s {
			return Bucket(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBucket, s)
}

// Category names a private vault collection.
type Category string

const (
	CategoryEmails             Category = "emails"
	CategoryIPAddresses        Category = "ip_addresses"
	CategoryInternalURLs       Category = "internal_urls"
	CategoryFilePaths          Category = "file_paths"
	CategoryCredentials        Category = "credentials"
	CategoryCloudSubscriptions Category = "cloud_subscriptions"
	CategoryCloudResources     Category = "cloud_resources"
)

var categories = []Category{
	CategoryEmails,
	CategoryIPAddresses,
	CategoryInternalURLs,
	CategoryFilePaths,
	CategoryCredentials,
	CategoryCloudSubscriptions,
	CategoryCloudResources,
}

// Categories returns every vault category in a stable order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func validCategory(c Category) bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Rule is a compiled detection rule.
type Rule struct {
	Name        string
	Bucket      Bucket
	Category    Category
	Placeholder string
	Noun        string
	Pattern     *regexp.Regexp

	validator string
	validate  func(string) bool
	exclude   map[string]struct{}
}

// Validator returns the name of the validation gate, or "" if none.
func (r *Rule) Validator() string { return r.validator }

// WholeMatch reports whether the rule replaces its entire match rather than
// a capture group.
func (r *Rule) WholeMatch() bool { return r.Pattern.NumSubexp() == 0 }

// Match is one sensitive span found by a rule.
type Match struct {
	Start int
	End   int
	Value string
}

// Find returns the sensitive spans of text matched by the rule, left to
// right. The span is the capture group when the regex has one, the whole
// match otherwise. Excluded literals and values rejected by the
// validator are dropped.
func (r *Rule) Find(text string) []Match {
	locs := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		if start == end {
			continue
		}
		value := text[start:end]
		if _, skip := r.exclude[value]; skip {
			continue
		}
		if r.validate != nil && !r.validate(value) {
			continue
		}
		matches = append(matches, Match{Start: start, End: end, Value: value})
	}
	return matches
}

// Registry is an immutable, priority-ordered list of rules. It is safe for
// concurrent use.
type Registry struct {
	rules  []Rule
	byName map[string]int
}

// Compile validates and compiles rule configs into a Registry. Disabled
// rules are skipped. Rules are ordered by bucket; the config order is
// kept within a bucket.
func Compile(configs []RuleConfig) (*Registry, error) {
	reg := &Registry{byName: make(map[string]int)}

	for i := range configs {
		rc := &configs[i]
		if !rc.isEnabled() {
			continue
		}
		rule, err := compileRule(rc)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", rc.Name, err)
		}
		if _, dup := reg.byName[rule.Name]; dup {
			return nil, fmt.Errorf("compiling rule %q: %w", rc.Name, ErrDuplicateRule)
		}
		reg.byName[rule.Name] = len(reg.rules)
		reg.rules = append(reg.rules, rule)
	}

	sort.SliceStable(reg.rules, func(i, j int) bool {
		return reg.rules[i].Bucket < reg.rules[j].Bucket
	})
	for i, r := range reg.rules {
		reg.byName[r.Name] = i
	}
	return reg, nil
}

func compileRule(rc *RuleConfig) (Rule, error) {
	if rc.Name == "" {
		return Rule{}, errors.New("rule name is required")
	}
	bucket, err := ParseBucket(rc.Bucket)
	if err != nil {
		return Rule{}, err
	}
	category := Category(rc.Category)
	if !validCategory(category) {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownCategory, rc.Category)
	}
	if rc.Placeholder == "" || PlaceholderPattern.FindString(rc.Placeholder) != rc.Placeholder {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidPlaceholder, rc.Placeholder)
	}
	pattern, err := regexp.Compile(rc.Regex)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling regex: %w", err)
	}
	if pattern.NumSubexp() > 1 {
		return Rule{}, ErrTooManyGroups
	}

	rule := Rule{
		Name:        rc.Name,
		Bucket:      bucket,
		Category:    category,
		Placeholder: rc.Placeholder,
		Noun:        rc.Noun,
		Pattern:     pattern,
		validator:   rc.Validator,
	}
	if rule.Noun == "" {
		rule.Noun = rc.Name + " match(es)"
	}
	if rc.Validator != "" {
		fn, ok := validators[rc.Validator]
		if !ok {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownValidator, rc.Validator)
		}
		rule.validate = fn
	}
	if len(rc.Exclude) > 0 {
		rule.exclude = make(map[string]struct{}, len(rc.Exclude))
		for _, v := range rc.Exclude {
			rule.exclude[v] = struct{}{}
		}
	}
	return rule, nil
}

// Rules returns the rules in application order. The slice is a copy.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of active rules.
func (r *Registry) Len() int { return len(r.rules) }

// Rule looks up a rule by name.
func (r *Registry) Rule(name string) (Rule, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Rule{}, false
	}
	return r.rules[idx], true
}

// Option configures registry construction via the functional options pattern.
type Option func(*options)

type options struct {
	ruleFile          string
	customRules       []RuleConfig
	disabledRules     []string
	enabledCategories []string
}

// WithRuleFile layers rules from a YAML file over the embedded defaults.
// A missing file is silently skipped.
func WithRuleFile(path string) Option {
	return func(o *options) { o.ruleFile = path }
}

// WithCustomRules layers rule definitions supplied in code over the
// defaults and the rule file.
func WithCustomRules(rules []RuleConfig) Option {
	return func(o *options) { o.customRules = rules }
}

// WithDisabledRules removes rules by name.
func WithDisabledRules(names []string) Option {
	return func(o *options) { o.disabledRules = names }
}

// WithEnabledCategories keeps only rules whose category is listed.
func WithEnabledCategories(categories []string) Option {
	return func(o *options) { o.enabledCategories = categories }
}

// New builds a Registry. Without options it compiles the embedded defaults.
func New(opts ...Option) (*Registry, error) {
	var cfg options
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("loading default rules: %w", err)
	}

	var fileRules []*RuleConfig
	if cfg.ruleFile != "" {
		rf, err := LoadRuleFile(cfg.ruleFile)
		if err != nil {
			return nil, fmt.Errorf("loading rule file: %w", err)
		}
		if rf != nil {
			fileRules = toPtrSlice(rf.Rules)
		}
	}

	var custom []*RuleConfig
	if len(cfg.customRules) > 0 {
		custom = toPtrSlice(cfg.customRules)
	}

	merged := MergeRules(toPtrSlice(defaults), fileRules, custom)
	merged = FilterRules(merged, cfg.enabledCategories, cfg.disabledRules)

	reg, err := Compile(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	return reg, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Registry {
	reg, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("registry.New: %v", err))
	}
	return reg
}

var defaultRegistry *Registry

func init() {
	reg, err := New()
	if err != nil {
		panic(fmt.Sprintf("compiling embedded rules: %v", err))
	}
	defaultRegistry = reg
}

// Default returns the process-wide registry compiled from the embedded
// rules. It is shared by every engine that does not supply its own.
func Default() *Registry { return defaultRegistry }

// Package config holds the pattern configuration of the event treeshake pass:
// which call names count as JSX factories and which property keys are removed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ErrInvalidPattern is returned by Compile when a configured match pattern
// does not compile.
var ErrInvalidPattern = errors.New("invalid match pattern")

// DefaultJsxs returns the factory names of the automatic JSX runtime.
func DefaultJsxs() []string {
	return []string{"jsx", "jsxs", "jsxDEV"}
}

// DefaultMatches returns the default removal patterns: identifiers starting
// with "on" followed by an uppercase letter.
func DefaultMatches() []string {
	return []string{"^on[A-Z]"}
}

// Options is the configuration payload a host pipeline hands to the pass.
//
// Example payload:
//
//	{"jsxs": ["jsx", "jsxs"], "matches": ["^on[A-Z]", "^data-track"]}
type Options struct {
	// Jsxs lists factory function names (default: jsx, jsxs, jsxDEV).
	Jsxs []string `json:"jsxs" yaml:"jsxs"`

	// Matches lists regular expressions tested against property keys
	// (default: ^on[A-Z]).
	Matches []string `json:"matches" yaml:"matches"`
}

// DefaultOptions returns the options used when no payload is supplied.
func DefaultOptions() Options {
	return Options{
		Jsxs:    DefaultJsxs(),
		Matches: DefaultMatches(),
	}
}

// rawOptions distinguishes an absent or null field from an empty list.
type rawOptions struct {
	Jsxs    *[]string `json:"jsxs"`
	Matches *[]string `json:"matches"`
}

// ParseOptions decodes a JSON payload. An empty or unparsable payload yields
// DefaultOptions; a missing or null field takes its default. The returned
// error reports why the payload was rejected and is informational only,
// the options are always usable.
func ParseOptions(payload []byte) (Options, error) {
	opts := DefaultOptions()
	if len(payload) == 0 {
		return opts, nil
	}

	var raw rawOptions
	if err := json.Unmarshal(payload, &raw); err != nil {
		return opts, fmt.Errorf("failed to parse options, using defaults: %w", err)
	}

	if raw.Jsxs != nil {
		opts.Jsxs = *raw.Jsxs
	}
	if raw.Matches != nil {
		opts.Matches = *raw.Matches
	}
	return opts, nil
}

// Merge returns o with every non-nil field of override applied.
func (o Options) Merge(override Options) Options {
	if override.Jsxs != nil {
		o.Jsxs = override.Jsxs
	}
	if override.Matches != nil {
		o.Matches = override.Matches
	}
	return o
}

// Patterns is the compiled, immutable form of Options. It is safe for
// concurrent use.
type Patterns struct {
	factories map[string]struct{}
	jsxs      []string
	matches   []*regexp.Regexp
}

// Compile validates opts and compiles its match patterns. Any pattern that
// fails to compile aborts construction.
func Compile(opts Options) (*Patterns, error) {
	p := &Patterns{
		factories: make(map[string]struct{}, len(opts.Jsxs)),
		jsxs:      slices.Clone(opts.Jsxs),
		matches:   make([]*regexp.Regexp, 0, len(opts.Matches)),
	}

	for _, name := range opts.Jsxs {
		p.factories[name] = struct{}{}
	}

	for _, expr := range opts.Matches {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, expr, err)
		}
		p.matches = append(p.matches, re)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error. Intended for defaults and tests.
func MustCompile(opts Options) *Patterns {
	p, err := Compile(opts)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the compiled default patterns.
func Default() *Patterns {
	return MustCompile(DefaultOptions())
}

// IsFactoryName reports whether name is a configured factory name.
func (p *Patterns) IsFactoryName(name string) bool {
	_, ok := p.factories[name]
	return ok
}

// ShouldRemove reports whether any removal pattern matches key.
func (p *Patterns) ShouldRemove(key string) bool {
	for _, re := range p.matches {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// Factories returns the configured factory names in configuration order.
func (p *Patterns) Factories() []string {
	return slices.Clone(p.jsxs)
}

// Matches returns the source text of the removal patterns in order.
func (p *Patterns) Matches() []string {
	out := make([]string, len(p.matches))
	for i, re := range p.matches {
		out[i] = re.String()
	}
	return out
}

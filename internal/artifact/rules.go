package artifact

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// PathRule maps an artifact type to the glob patterns of its files.
type PathRule struct {
	Type     Type     `yaml:"type"`
	Patterns []string `yaml:"paths"`
}

// rulesConfig holds a path rules file.
type rulesConfig struct {
	Rules []PathRule `yaml:"rules"`
}

// Matcher decides which project files are tracked artifact files.
type Matcher struct {
	rules []PathRule
}

// DefaultRules returns one rule per artifact type, matching Markdown files
// directly under the type's folder.
func DefaultRules() []PathRule {
	var rules []PathRule
	for _, t := range Types() {
		rules = append(rules, PathRule{
			Type:     t,
			Patterns: []string{typeDirs[t] + "/*.md"},
		})
	}
	return rules
}

// NewMatcher creates a matcher from a list of path rules.
func NewMatcher(rules []PathRule) *Matcher {
	return &Matcher{rules: rules}
}

// LoadRules parses a YAML rules document. Projects without one use
// DefaultRules.
func LoadRules(data []byte) (*Matcher, error) {
	var config rulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing path rules: %w", err)
	}
	return &Matcher{rules: config.Rules}, nil
}

// Match reports whether a project-relative path is a tracked artifact file,
// and the artifact type it belongs to.
func (m *Matcher) Match(path string) (Type, bool) {
	for _, rule := range m.rules {
		for _, pattern := range rule.Patterns {
			match, err := doublestar.Match(pattern, path)
			if err != nil {
				continue
			}
			if match {
				return rule.Type, true
			}
		}
	}
	return TypeUnknown, false
}

// MatchAll filters paths down to tracked artifact files, preserving order.
func (m *Matcher) MatchAll(paths []string) []string {
	var tracked []string
	for _, path := range paths {
		if _, ok := m.Match(path); ok {
			tracked = append(tracked, path)
		}
	}
	return tracked
}

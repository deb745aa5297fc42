package artifacts

import (
	"regexp"
)

// RedactionConfig defines which secret-shaped substrings get scrubbed from
// raw tool output before it is inlined, logged, or spilled to Store.
// External tool integrations (materials databases, compute clusters)
// sometimes echo back the credentials they were called with.
type RedactionConfig struct {
	Enabled bool
	// Patterns are additional regexes to redact, alongside the built-in
	// API-key/bearer-token/AWS-key patterns.
	Patterns []string
}

// RedactionPolicy scrubs secret-shaped substrings out of artifact text.
type RedactionPolicy struct {
	enabled  bool
	patterns []*regexp.Regexp
}

var defaultRedactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key["']?\s*[:=]\s*["']?)([A-Za-z0-9_\-]{16,})`),
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9_\-\.]{16,})`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`(?i)(secret[_-]?access[_-]?key["']?\s*[:=]\s*["']?)([A-Za-z0-9/+=]{24,})`),
}

const redactedPlaceholder = "[REDACTED]"

// NewRedactionPolicy compiles a policy from config. A disabled config
// returns a nil policy, which Redact treats as a no-op.
func NewRedactionPolicy(cfg RedactionConfig) (*RedactionPolicy, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	policy := &RedactionPolicy{enabled: true, patterns: append([]*regexp.Regexp(nil), defaultRedactionPatterns...)}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		policy.patterns = append(policy.patterns, re)
	}
	return policy, nil
}

// Redact returns text with every secret-shaped match replaced. A nil
// receiver or disabled policy returns text unchanged.
func (p *RedactionPolicy) Redact(text string) string {
	if p == nil || !p.enabled {
		return text
	}
	for _, re := range p.patterns {
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if len(sub) >= 3 && sub[1] != "" {
				return sub[1] + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return text
}

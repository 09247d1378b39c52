package logging

import (
	"regexp"
	"strings"

	"warden-hq/warden/pkg/config"
)

// Redactor scrubs credentials and other sensitive material from log fields
// and audit event details. Agent action parameters routinely carry API keys,
// tokens, and addresses that must not reach the audit trail verbatim.
//
// A nil *Redactor is valid and scrubs nothing, so callers can wire it
// optionally.
type Redactor struct {
	patterns map[string]*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey       = "api_key"
	PatternBearerToken  = "bearer_token"
	PatternPassword     = "password"
	PatternEmail        = "email"
	PatternAWSAccessKey = "aws_access_key"
	PatternIPv4         = "ipv4"
)

// NewRedactor creates a Redactor with the built-in patterns plus any custom
// patterns from configuration. Custom patterns that fail to compile are
// skipped; config validation reports them at load time.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{patterns: make(map[string]*redactPattern)}
	r.addDefaultPatterns()

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns[p.Name] = &redactPattern{
			regex:       regex,
			replacement: p.Replacement,
		}
	}

	return r
}

func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		PatternAPIKey: {
			regex:       `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:]\s*[a-zA-Z0-9]+)`,
			replacement: "sk-***",
		},
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
		PatternPassword: {
			regex:       `(password|passwd|pwd)[:=]\s*[^\s]+`,
			replacement: "$1: ***",
		},
		PatternEmail: {
			regex:       `[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`,
			replacement: "***@$1",
		},
		PatternAWSAccessKey: {
			regex:       `\bAKIA[0-9A-Z]{16}\b`,
			replacement: "AKIA***",
		},
		PatternIPv4: {
			regex:       `\b(\d{1,3})\.(?:\d{1,3}\.){2}\d{1,3}\b`,
			replacement: "$1.*.*.*",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString scrubs sensitive material from a string value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// RedactArgs scrubs variadic slog arguments in key1, value1, key2, value2
// form. Values under sensitive key names are masked entirely; other string
// values are pattern-scrubbed.
func (r *Redactor) RedactArgs(args ...any) []any {
	if r == nil || len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && isSensitiveKey(key) {
			redacted[i] = maskValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// ScrubMap returns a copy of the map with sensitive values scrubbed. Nested
// maps and slices are scrubbed recursively; the input is not modified. A nil
// redactor or nil map passes through unchanged.
func (r *Redactor) ScrubMap(m map[string]interface{}) map[string]interface{} {
	if r == nil || m == nil {
		return m
	}

	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = maskValue(v)
			continue
		}
		out[k] = r.scrubValue(v)
	}
	return out
}

func (r *Redactor) scrubValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return r.RedactString(val)
	case map[string]interface{}:
		return r.ScrubMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = r.scrubValue(item)
		}
		return out
	default:
		return v
	}
}

// isSensitiveKey reports whether a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey",
		"credential", "authorization",
		"private_key", "privatekey",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// maskValue masks a sensitive value entirely, keeping a short prefix of
// longer strings for identification.
func maskValue(value any) any {
	s, ok := value.(string)
	if !ok {
		return "***"
	}
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

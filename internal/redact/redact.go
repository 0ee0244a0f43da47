// Package redact strips values that look like inline environment
// assignments out of a command line before it is logged, so secrets
// passed to a child via Env (e.g. "TOKEN=abcd...") never reach the log
// sink. Adapted from internal/redact/redact.go's "strip before it leaves
// the process" discipline in this module's teacher repository -- there it
// redacted config before sending it over IPC, here it redacts a command
// line before it is written to a slog record.
package redact

import "strings"

// CommandLine renders argv as a single string for logging, replacing the
// value half of any KEY=VALUE-shaped token with "***".
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, tok := range argv {
		parts[i] = Token(tok)
	}
	return strings.Join(parts, " ")
}

// Token redacts a single argv token if it looks like an inline env
// assignment (KEY=VALUE, key starting with a letter or underscore).
func Token(tok string) string {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return tok
	}
	key := tok[:eq]
	if !isEnvKey(key) {
		return tok
	}
	return key + "=***"
}

func isEnvKey(key string) bool {
	for i, r := range key {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

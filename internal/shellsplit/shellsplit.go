// Package shellsplit word-splits a command string using POSIX shell
// lexical rules, for the case where a Child is given a single string but
// UseShell is false (so no shell is present to do the splitting itself).
package shellsplit

import "github.com/google/shlex"

// Split tokenizes s the way a POSIX shell would before exec, honoring
// single quotes, double quotes, and backslash escapes.
func Split(s string) ([]string, error) {
	return shlex.Split(s)
}

package scheduler

import (
	"regexp"
	"strings"
)

// compilePattern converts a glob-style database pattern ('*' and '?' only)
// into an anchored, case-sensitive regular expression. Every other regex
// metacharacter is escaped first, so pattern input cannot inject syntax.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `.*`)
	escaped = strings.ReplaceAll(escaped, `\?`, `.`)
	return regexp.Compile("^" + escaped + "$")
}

// MatchesPattern reports whether a database name matches a glob pattern.
// The match is against the full name, never a substring.
func MatchesPattern(name, pattern string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

// Package slug provides utilities for deriving URL-safe identifiers from
// display names and for resolving collisions against an existing collection.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// invalidRe matches everything outside the characters a slug may contain
// before hyphenation: lowercase letters, digits, spaces and hyphens.
var invalidRe = regexp.MustCompile(`[^a-z0-9 -]`)

// multiHyphen collapses runs of hyphens.
var multiHyphen = regexp.MustCompile(`-{2,}`)

// whitespaceRun collapses runs of whitespace.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize converts an arbitrary display name into a URL-safe slug.
// The result contains only lowercase alphanumerics and single hyphens, with
// no leading or trailing hyphen. An empty or fully-stripped input yields ""
// and the caller must handle it.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	s = invalidRe.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}

// EnsureUnique returns base if exists reports it unused, otherwise probes
// base-2, base-3, ... until an unused candidate is found. Each probe is a
// strictly new candidate, so the loop terminates once it passes the size of
// the collection backing exists.
//
// This only minimizes collision probability under concurrent writers; the
// store's unique constraint remains the arbiter at insert time.
func EnsureUnique(base string, exists func(string) bool) string {
	if !exists(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !exists(candidate) {
			return candidate
		}
	}
}

package store

import "regexp"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidSlug reports whether s matches the required slug grammar.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

package models

import (
	"regexp"
	"strings"
)

var (
	tagInvalidRe  = regexp.MustCompile(`[^a-z0-9äöüéèàç]+`)
	tagCollapseRe = regexp.MustCompile(`-{2,}`)
)

// SanitizeTag normalizes a user-supplied tag into a lowercase slug safe for
// the ledger: spaces and punctuation become hyphens, runs collapse, edges
// are trimmed.
func SanitizeTag(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	s = tagInvalidRe.ReplaceAllString(s, "-")
	s = tagCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParentTag derives the traceability tag applied to all children of a
// settlement entity: a sanitized slug of the original's description,
// truncated to a ledger-friendly length.
func ParentTag(originalDescription string) string {
	slug := SanitizeTag(originalDescription)
	const maxLen = 60
	if len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	return slug
}

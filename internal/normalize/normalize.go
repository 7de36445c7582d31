// Package normalize provides canonicalization for tag labels and URLs.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// foldDiacritics decomposes accented characters and strips the combining
// marks, so "Café" folds to "Cafe" before slugging.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// TagLabel converts user input to a canonical tag label.
// The canonical label is the source of truth for tag identity: a page's
// tag set is deduplicated on this form, so "Slow Burn" and "slow_burn"
// are the same tag.
//
// Normalization rules:
//  1. Fold diacritics ("Café" → "Cafe")
//  2. Trim whitespace and lowercase
//  3. Replace spaces, underscores and slashes with dashes
//  4. Remove non-alphanumeric characters (except dashes)
//  5. Collapse multiple dashes and trim leading/trailing dashes
//
// Examples:
//
//	"Slow Burn"   → "slow-burn"
//	"slow_burn"   → "slow-burn"
//	"Café Lists"  → "cafe-lists"
//	"🔖 To Read!" → "to-read"
func TagLabel(input string) string {
	s, _, err := transform.String(foldDiacritics, input)
	if err != nil {
		s = input
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// URL canonicalizes a bookmark URL for comparison: trims whitespace and
// drops a single trailing slash. It deliberately does not rewrite scheme
// or host; the stored URL stays what the user saved.
func URL(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

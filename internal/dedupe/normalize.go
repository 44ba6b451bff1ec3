// package dedupe implements the duplicate-resolution engine: title and artist
// normalization, tolerance-based grouping, and the keep/delete decision.
package dedupe

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Cosmetic re-release markers stripped in relaxed mode. These mark packaging
// variants of the same recording, not different songs.
var markerRE = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\s*-\s*remaster(?:ed)?\s*(?:\d{2,4})?`,
	`\s*-\s*(?:mono|stereo)\s*version`,
	`\s*-\s*(?:radio|clean|explicit)\s*edit`,
	`\s*\((?:feat\.?|featuring) [^)]*\)`,
	`\s*\[(?:feat\.?|featuring) [^\]]*\]`,
	`\s*\((?:version|edit|remaster[^)]*)\)`,
}, "|"))

// Curly quotes, dashes and sentence punctuation fold to spaces.
var punctRE = regexp.MustCompile(`[\x{2018}\x{2019}\x{201C}\x{201D}\x{2014}\x{2013}:,.;!?'"-]`)

// hasCJK reports whether s contains Hiragana/Katakana, CJK Unified
// Ideographs, or CJK Extension A codepoints.
func hasCJK(s string) bool {
	for _, r := range s {
		if (r >= 0x3040 && r <= 0x30FF) || (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) {
			return true
		}
	}
	return false
}

// stripAccentsLatinOnly removes combining diacritics whose base letter is
// Latin. Marks on other scripts are left alone so decomposition cannot
// corrupt them.
func stripAccentsLatinOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	latinBase := false
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
			b.WriteRune(r)
			continue
		}
		latinBase = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}

	return norm.NFC.String(b.String())
}

// NormalizeTitle canonicalizes a track title for comparison: NFKC
// normalization, trim, case folding, optional marker stripping, then
// script-aware accent and punctuation handling. Strict mode keeps re-release
// markers so "Song - Remastered" and "Song" stay distinct.
func NormalizeTitle(title string, strict bool) string {
	s := strings.TrimSpace(norm.NFKC.String(title))
	if s == "" {
		return ""
	}

	cjk := hasCJK(s)
	s = cases.Fold().String(s)

	if !strict {
		s = markerRE.ReplaceAllString(s, "")
	}

	if cjk {
		// Accent stripping decomposes and mangles these scripts; only fold
		// punctuation.
		s = punctRE.ReplaceAllString(s, " ")
	} else {
		s = stripAccentsLatinOnly(s)
		s = punctRE.ReplaceAllString(s, " ")
		s = strings.ReplaceAll(s, "&", " and ")
	}

	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// NormalizeArtists normalizes each artist name in strict mode (artist names
// rarely carry re-release markers and stripping could mangle real names),
// deduplicates, and returns a sorted sequence so operand order never affects
// key equality.
func NormalizeArtists(artists []string) []string {
	set := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		if s := NormalizeTitle(a, true); s != "" {
			set[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

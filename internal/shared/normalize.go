package shared

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	featExpr = regexp2.MustCompile(`(?i)(?<title>.+?)\s*[\(\[]?\b(?:feat(?:uring)?|ft)\b\.?\s+.+$`, 0)
	guffExpr = regexp2.MustCompile(
		`(?i)(?<title>.+?)\s+(?:-\s+|[\(\[])(?<guff>[^\)\]]*\b(?:remaster(?:ed)?|live|radio edit|single version|album version|mono|stereo|deluxe|explicit|clean|bonus track)\b[^\)\]]*)[\)\]]?$`,
		0,
	)
	folder = cases.Fold()
)

// Fold case-folds s and strips combining marks, so "Beyoncé" and "BEYONCE" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return folder.String(stripped)
}

// ContainsFold reports whether needle occurs in haystack, ignoring case and diacritics.
//
// An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// EqualFold reports whether a and b are equal after folding and whitespace trimming.
func EqualFold(a, b string) bool {
	return Fold(strings.TrimSpace(a)) == Fold(strings.TrimSpace(b))
}

// CleanTitle drops featured-artist credits and release guff such as "(Remastered 2011)" or "- Live".
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, expr := range []*regexp2.Regexp{featExpr, guffExpr} {
		match, err := expr.FindStringMatch(title)
		if err != nil || match == nil {
			continue
		}
		if t := strings.TrimSpace(match.GroupByName("title").String()); t != "" {
			title = t
		}
	}
	return title
}

// NormalizeTrackKey builds a "title|artist" key used to detect the same recording across sources.
func NormalizeTrackKey(title, artist string) string {
	t := strings.Join(strings.Fields(Fold(CleanTitle(title))), " ")
	a := strings.Join(strings.Fields(Fold(artist)), " ")
	return t + "|" + a
}

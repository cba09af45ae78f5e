// Package normalize strips social-media noise from raw post text.
//
// Normalize removes, in order: URLs (any token starting with "http" or
// "www", so truncated links go too), user mentions, hashtag markers (the tag
// text is kept), every rune that is not a letter, mark, number or whitespace,
// and number runs. Whitespace is then collapsed and trimmed.
//
// Case is preserved. Callers that need lowercase text (the stem reducer,
// the frequency builder) lowercase on their side.
//
// All functions are pure and safe for concurrent use.
package normalize

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern     = regexp.MustCompile(`(?i)\b(?:http|www)\S*`)
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	symbolPattern  = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
	numberPattern  = regexp.MustCompile(`\p{N}+`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize cleans a single raw post. Empty or whitespace-only input
// yields "".
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := raw
	if strings.ContainsAny(s, "<&") {
		s = stripMarkup(s)
	}
	s = norm.NFKC.String(s)

	s = StripSocial(s)
	s = symbolPattern.ReplaceAllString(s, "")
	s = numberPattern.ReplaceAllString(s, "")
	// Symbol and digit removal can glue an obfuscated link back together.
	s = urlPattern.ReplaceAllString(s, " ")

	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripSocial removes URLs and mentions and drops '#' markers while keeping
// the tag text. It is a no-op on Normalize output.
func StripSocial(s string) string {
	s = urlPattern.ReplaceAllString(s, " ")
	s = mentionPattern.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, "#", "")
}

// NormalizeAll applies Normalize to every element, preserving order.
func NormalizeAll(raws []string) []string {
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r)
	}
	return out
}

// stripMarkup keeps only the text content of scraped HTML fragments and
// decodes entities ("&amp;" -> "&"). Text segments are joined with a space.
func stripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			// Malformed markup: fall back to the raw input.
			return s
		case html.TextToken:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(z.Text())
		}
	}
}

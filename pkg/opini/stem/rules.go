package stem

import "strings"

// Suffix groups, stripped right to left in this order. Longest surface first.
var (
	particleSuffixes   = []string{"lah", "kah", "tah", "pun"}
	possessiveSuffixes = []string{"nya", "ku", "mu"}
	derivSuffixes      = []string{"kan", "an", "i"}
)

// maxPrefixes bounds how many derivational prefixes are peeled off one word
// (e.g. mem-per-, di-per-, ke-ber-).
const maxPrefixes = 3

// prefixRule removes one derivational prefix. recode returns the candidate
// stems for the remainder in preference order, or nil when the rule does not
// apply. Nasal prefixes (meN-, peN-) may have absorbed the first consonant of
// the root, so they yield more than one candidate.
type prefixRule struct {
	prefix string
	recode func(rest string) []string
}

// prefixRules is ordered so that longer surfaces of one family are tried
// before shorter ones (menge- before meng- before me-).
var prefixRules = []prefixRule{
	{"menge", func(rest string) []string { return []string{rest} }},
	{"meng", func(rest string) []string {
		switch {
		case startsWithVowel(rest):
			return []string{rest, "k" + rest}
		case startsWithAny(rest, "ghkq"):
			return []string{rest}
		}
		return nil
	}},
	{"meny", func(rest string) []string {
		if startsWithVowel(rest) {
			return []string{"s" + rest, "ny" + rest}
		}
		return nil
	}},
	{"mem", func(rest string) []string {
		switch {
		case startsWithAny(rest, "bfvp"):
			return []string{rest}
		case startsWithVowel(rest):
			return []string{"p" + rest, "m" + rest}
		}
		return nil
	}},
	{"men", func(rest string) []string {
		switch {
		case startsWithAny(rest, "cdjzst"):
			return []string{rest}
		case startsWithVowel(rest):
			return []string{"t" + rest, "n" + rest}
		}
		return nil
	}},
	{"me", func(rest string) []string {
		if startsWithAny(rest, "lrwymn") {
			return []string{rest}
		}
		return nil
	}},
	{"peng", func(rest string) []string {
		switch {
		case startsWithVowel(rest):
			return []string{rest, "k" + rest}
		case startsWithAny(rest, "ghk"):
			return []string{rest}
		}
		return nil
	}},
	{"peny", func(rest string) []string {
		if startsWithVowel(rest) {
			return []string{"s" + rest, "ny" + rest}
		}
		return nil
	}},
	{"pem", func(rest string) []string {
		switch {
		case startsWithAny(rest, "bfv"):
			return []string{rest}
		case startsWithVowel(rest):
			return []string{"p" + rest, "m" + rest}
		}
		return nil
	}},
	{"pen", func(rest string) []string {
		switch {
		case startsWithAny(rest, "cdjz"):
			return []string{rest}
		case startsWithVowel(rest):
			return []string{"t" + rest, "n" + rest}
		}
		return nil
	}},
	{"pel", func(rest string) []string {
		if rest == "ajar" {
			return []string{rest}
		}
		return nil
	}},
	{"per", func(rest string) []string { return []string{rest} }},
	{"pe", func(rest string) []string {
		if startsWithAny(rest, "lrwymn") {
			return []string{rest}
		}
		return nil
	}},
	{"bel", func(rest string) []string {
		if rest == "ajar" {
			return []string{rest}
		}
		return nil
	}},
	{"ber", func(rest string) []string { return []string{rest} }},
	{"be", func(rest string) []string {
		if consonantEr(rest) {
			return []string{rest}
		}
		return nil
	}},
	{"ter", func(rest string) []string { return []string{rest} }},
	{"te", func(rest string) []string {
		if consonantEr(rest) {
			return []string{rest}
		}
		return nil
	}},
	{"di", func(rest string) []string { return []string{rest} }},
	{"ke", func(rest string) []string { return []string{rest} }},
	{"se", func(rest string) []string { return []string{rest} }},
}

// prefixCandidates returns every stem reachable from w by removing one
// prefix, in rule order.
func prefixCandidates(w string) []string {
	var out []string
	for _, rule := range prefixRules {
		rest, ok := strings.CutPrefix(w, rule.prefix)
		if !ok || rest == "" {
			continue
		}
		out = append(out, rule.recode(rest)...)
	}
	return out
}

// suffixChain strips particle, possessive and derivational suffixes in turn
// and returns each intermediate form, most stripped first. A suffix is only
// removed when at least minRest runes remain. The input word is not included.
func suffixChain(w string, minRest int) []string {
	var chain []string
	for _, group := range [][]string{particleSuffixes, possessiveSuffixes, derivSuffixes} {
		next := stripSuffix(w, group, minRest)
		if next != w {
			chain = append(chain, next)
			w = next
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func stripSuffix(w string, group []string, minRest int) string {
	for _, sfx := range group {
		rest, ok := strings.CutSuffix(w, sfx)
		if !ok {
			continue
		}
		need := minRest
		if sfx == "i" {
			need++
		}
		if runeLen(rest) >= need {
			return rest
		}
	}
	return w
}

func startsWithVowel(s string) bool {
	return startsWithAny(s, "aiueo")
}

func startsWithAny(s, set string) bool {
	return s != "" && strings.IndexByte(set, s[0]) >= 0
}

// consonantEr matches roots shaped C-er-... as in be-kerja, te-percaya.
func consonantEr(s string) bool {
	return len(s) >= 4 && !startsWithVowel(s) && s[1:3] == "er"
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

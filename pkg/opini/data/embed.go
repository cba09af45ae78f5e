// Package data embeds the word lists shipped with opini.
package data

import _ "embed"

// RootWords is the Indonesian root-word dictionary used by the stem reducer.
//
//go:embed roots.txt
var RootWords string

// IndonesianStopwords is the Indonesian stopword corpus.
//
//go:embed stopwords_id.txt
var IndonesianStopwords string

// GenericStopwords is the generic (English) word-cloud stopword corpus.
//
//go:embed stopwords_en.txt
var GenericStopwords string

// PolarityLexicon maps Indonesian roots to polarity scores ("root<TAB>score").
//
//go:embed lexicon_id.txt
var PolarityLexicon string

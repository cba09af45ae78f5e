// Package analytics computes corpus statistics over cleaned posts: document
// frequency, how evenly a token spreads across sentiment labels, and
// adjacent-pair association. The stats feed stoplist.Manager to propose
// domain noise terms that flood every cloud without carrying sentiment.
package analytics

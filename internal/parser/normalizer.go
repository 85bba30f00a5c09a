package parser

import (
	"strings"

	"github.com/orderbot/sheetsync/internal/models"
)

// VocabularyEntry defines one canonical product: the name parsed lines
// carry, the key used for substring matching, and exact-match synonyms.
type VocabularyEntry struct {
	Canonical string
	Key       string
	Synonyms  []string
}

// DefaultVocabulary covers the three products the bot knows about.
func DefaultVocabulary() []VocabularyEntry {
	return []VocabularyEntry{
		{Canonical: models.ProductA, Key: "big", Synonyms: []string{"grande", "biggy"}},
		{Canonical: models.ProductB, Key: "green", Synonyms: []string{"grn", "verde"}},
		{Canonical: models.ProductC, Key: "mini", Synonyms: []string{"small", "tiny"}},
	}
}

// Normalizer maps raw product tokens onto the canonical vocabulary.
type Normalizer struct {
	entries  []VocabularyEntry
	synonyms map[string]string
}

// NewNormalizer creates a normalizer over the given vocabulary. The
// canonical name itself is always accepted as a synonym so that
// normalization is idempotent.
func NewNormalizer(entries []VocabularyEntry) *Normalizer {
	synonyms := make(map[string]string)
	for _, e := range entries {
		synonyms[strings.ToLower(e.Canonical)] = e.Canonical
		for _, s := range e.Synonyms {
			synonyms[strings.ToLower(s)] = e.Canonical
		}
	}
	return &Normalizer{entries: entries, synonyms: synonyms}
}

// Normalize canonicalizes a raw product token. Lookup order: exact
// synonym match first, then substring containment of an entry's key in
// the trimmed token. Unrecognized tokens are returned unchanged; an
// unknown product is data, not an error.
func (n *Normalizer) Normalize(token string) string {
	trimmed := strings.ToLower(strings.TrimSpace(token))

	if canonical, ok := n.synonyms[trimmed]; ok {
		return canonical
	}

	for _, e := range n.entries {
		if strings.Contains(trimmed, strings.ToLower(e.Key)) {
			return e.Canonical
		}
	}

	return token
}

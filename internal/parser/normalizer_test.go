package parser

import (
	"testing"

	"github.com/orderbot/sheetsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(DefaultVocabulary())

	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "canonical name maps to itself",
			token:    "ProductA",
			expected: models.ProductA,
		},
		{
			name:     "exact synonym match",
			token:    "grande",
			expected: models.ProductA,
		},
		{
			name:     "synonym match is case insensitive",
			token:    "VERDE",
			expected: models.ProductB,
		},
		{
			name:     "substring containment of key",
			token:    "bigone",
			expected: models.ProductA,
		},
		{
			name:     "substring containment with surrounding noise",
			token:    "the-green-one",
			expected: models.ProductB,
		},
		{
			name:     "key match after trimming",
			token:    "  mini  ",
			expected: models.ProductC,
		},
		{
			name:     "unrecognized token passes through unchanged",
			token:    "unknownwidget",
			expected: "unknownwidget",
		},
		{
			name:     "empty token passes through",
			token:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.token))
		})
	}
}

func TestNormalizer_NormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultVocabulary())

	tokens := []string{"bigone", "grande", "green", "mini", "unknownwidget", "ProductC", ""}
	for _, token := range tokens {
		once := n.Normalize(token)
		assert.Equal(t, once, n.Normalize(once), "normalize(normalize(%q))", token)
	}
}

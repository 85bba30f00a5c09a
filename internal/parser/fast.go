package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/orderbot/sheetsync/internal/models"
)

// ErrNoMatch means the message does not have the fast "company product
// count ..." shape and should be handed to the AI fallback.
var ErrNoMatch = errors.New("message does not match fast order pattern")

// FastParser recognizes the common deterministic message shape:
// a company token followed by one or more (product, count) pairs.
type FastParser struct {
	normalizer *Normalizer
}

// NewFastParser creates a fast parser backed by the given normalizer.
func NewFastParser(normalizer *Normalizer) *FastParser {
	return &FastParser{normalizer: normalizer}
}

// Parse splits the text on whitespace and requires an exact repeating
// (product, count) pattern after the company token. Any malformed count
// or leftover token aborts the whole parse with ErrNoMatch: partial
// matches are deliberately rejected so ambiguous input reaches the AI
// fallback instead of being silently truncated.
func (p *FastParser) Parse(text string) ([]models.OrderLine, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return nil, ErrNoMatch
	}

	company := tokens[0]
	rest := tokens[1:]
	if len(rest)%2 != 0 {
		return nil, ErrNoMatch
	}

	lines := make([]models.OrderLine, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		count, err := strconv.Atoi(rest[i+1])
		if err != nil || count <= 0 {
			return nil, ErrNoMatch
		}
		lines = append(lines, models.OrderLine{
			Company: company,
			Product: p.normalizer.Normalize(rest[i]),
			Count:   count,
		})
	}

	return lines, nil
}

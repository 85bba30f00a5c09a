package parser

import (
	"context"
	"errors"

	"github.com/orderbot/sheetsync/internal/application/port"
	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// Pipeline orchestrates the two-tier parsing strategy: the free fast
// parser always runs first, the paid AI extractor only on a structural
// mismatch.
type Pipeline struct {
	fast       *FastParser
	extractor  port.Extractor
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewPipeline creates a parsing pipeline.
func NewPipeline(fast *FastParser, extractor port.Extractor, normalizer *Normalizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		fast:       fast,
		extractor:  extractor,
		normalizer: normalizer,
		logger:     logger,
	}
}

// ParseMessage parses free text into order lines. The result is
// post-normalized regardless of which path produced it; the extractor's
// own normalization is not trusted. An empty result means nobody gets a
// confirmation prompt for this message, which is logged by the caller.
func (p *Pipeline) ParseMessage(ctx context.Context, text string) ([]models.OrderLine, error) {
	lines, err := p.fast.Parse(text)
	if err == nil {
		return p.normalizeAll(lines), nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}

	p.logger.Debug("Fast parse missed, falling back to extractor",
		zap.Int("text_len", len(text)))

	lines, err = p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	return p.normalizeAll(lines), nil
}

func (p *Pipeline) normalizeAll(lines []models.OrderLine) []models.OrderLine {
	for i := range lines {
		lines[i].Product = p.normalizer.Normalize(lines[i].Product)
	}
	return lines
}

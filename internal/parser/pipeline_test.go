package parser

import (
	"context"
	"testing"

	"github.com/orderbot/sheetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExtractor struct {
	calls int
	lines []models.OrderLine
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]models.OrderLine, error) {
	f.calls++
	return f.lines, f.err
}

func newTestPipeline(extractor *fakeExtractor) *Pipeline {
	n := NewNormalizer(DefaultVocabulary())
	return NewPipeline(NewFastParser(n), extractor, n, zap.NewNop())
}

func TestPipeline_FastPathNeverCallsExtractor(t *testing.T) {
	extractor := &fakeExtractor{}
	p := newTestPipeline(extractor)

	lines, err := p.ParseMessage(context.Background(), "acme bigone 3 green 2")
	require.NoError(t, err)

	assert.Equal(t, []models.OrderLine{
		{Company: "acme", Product: models.ProductA, Count: 3},
		{Company: "acme", Product: models.ProductB, Count: 2},
	}, lines)
	assert.Zero(t, extractor.calls, "extractor must not run when the fast pattern matches")
}

func TestPipeline_FallsBackOnStructuralMismatch(t *testing.T) {
	extractor := &fakeExtractor{
		lines: []models.OrderLine{
			{Company: "acme", Product: "bigone", Count: 4},
			{Company: "globex", Product: "verde", Count: 1},
		},
	}
	p := newTestPipeline(extractor)

	lines, err := p.ParseMessage(context.Background(), "acme wants four of the big ones, globex one green")
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.calls)
	// Extractor output is re-normalized locally.
	assert.Equal(t, []models.OrderLine{
		{Company: "acme", Product: models.ProductA, Count: 4},
		{Company: "globex", Product: models.ProductB, Count: 1},
	}, lines)
}

func TestPipeline_EmptyFallbackResultIsNotAnError(t *testing.T) {
	extractor := &fakeExtractor{lines: []models.OrderLine{}}
	p := newTestPipeline(extractor)

	lines, err := p.ParseMessage(context.Background(), "good morning everyone")
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, 1, extractor.calls)
}

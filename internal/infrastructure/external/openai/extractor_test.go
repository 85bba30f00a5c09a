package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/orderbot/sheetsync/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func newTestExtractor(completer chatCompleter) *Extractor {
	return &Extractor{
		client:     completer,
		model:      "gpt-4",
		vocabulary: []string{models.ProductA, models.ProductB, models.ProductC},
		logger:     zap.NewNop(),
	}
}

func TestExtractor_ParsesPlainJSONArray(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{
		content: `[{"company":"acme","product":"ProductA","count":3},{"company":"globex","product":"ProductB","count":1}]`,
	})

	lines, err := e.Extract(context.Background(), "acme wants three big ones, globex one green")
	require.NoError(t, err)

	assert.Equal(t, []models.OrderLine{
		{Company: "acme", Product: models.ProductA, Count: 3},
		{Company: "globex", Product: models.ProductB, Count: 1},
	}, lines)
}

func TestExtractor_StripsCodeFence(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{
		content: "```json\n[{\"company\":\"acme\",\"product\":\"ProductC\",\"count\":2}]\n```",
	})

	lines, err := e.Extract(context.Background(), "two minis for acme please")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, models.ProductC, lines[0].Product)
}

func TestExtractor_MalformedResponseDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "prose instead of JSON", content: "Sorry, I could not find any orders."},
		{name: "JSON object instead of array", content: `{"company":"acme"}`},
		{name: "empty response", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(&fakeCompleter{content: tt.content})
			lines, err := e.Extract(context.Background(), "whatever")
			require.NoError(t, err)
			assert.Empty(t, lines)
		})
	}
}

func TestExtractor_APIErrorDegradesToEmpty(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{err: errors.New("rate limited")})

	lines, err := e.Extract(context.Background(), "acme big 3")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestExtractor_MissingCredentialDegradesToEmpty(t *testing.T) {
	e := NewExtractor("", "gpt-4", 0, []string{models.ProductA}, zap.NewNop())

	lines, err := e.Extract(context.Background(), "acme big 3")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestExtractor_DropsMalformedEntries(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{
		content: `[{"company":"","product":"ProductA","count":3},{"company":"acme","product":"ProductA","count":0},{"company":"acme","product":"ProductB","count":2}]`,
	})

	lines, err := e.Extract(context.Background(), "mixed bag")
	require.NoError(t, err)
	assert.Equal(t, []models.OrderLine{
		{Company: "acme", Product: models.ProductB, Count: 2},
	}, lines)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "no fence", in: `[1]`, expected: `[1]`},
		{name: "json fence", in: "```json\n[1]\n```", expected: "[1]"},
		{name: "bare fence", in: "```\n[1]\n```", expected: "[1]"},
		{name: "surrounding whitespace", in: "  \n```json\n[1]\n```\n", expected: "[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFence(tt.in))
		})
	}
}

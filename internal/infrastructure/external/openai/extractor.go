// Package openai implements the port.Extractor fallback against the
// OpenAI chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orderbot/sheetsync/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatCompleter is the slice of the OpenAI client the extractor uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor pulls (company, product, count) triples out of free text.
// Every failure mode degrades to an empty result: a message nobody gets
// to confirm is an observable, logged outcome, not a crash.
type Extractor struct {
	client      chatCompleter
	model       string
	temperature float32
	vocabulary  []string
	logger      *zap.Logger
}

// NewExtractor creates an extractor. An empty API key yields an
// extractor that logs and returns empty results instead of calling out.
func NewExtractor(apiKey, model string, temperature float32, vocabulary []string, logger *zap.Logger) *Extractor {
	var client chatCompleter
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &Extractor{
		client:      client,
		model:       model,
		temperature: temperature,
		vocabulary:  vocabulary,
		logger:      logger,
	}
}

// extractedOrder mirrors the JSON contract of the prompt.
type extractedOrder struct {
	Company string `json:"company"`
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// Extract implements port.Extractor.
func (e *Extractor) Extract(ctx context.Context, text string) ([]models.OrderLine, error) {
	if e.client == nil {
		e.logger.Warn("Extraction skipped, no API credential configured")
		return nil, nil
	}

	prompt := fmt.Sprintf(extractionPromptTemplate, strings.Join(e.vocabulary, ", "), text)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		e.logger.Error("Extraction API call failed", zap.Error(err))
		return nil, nil
	}

	if len(resp.Choices) == 0 {
		e.logger.Error("Extraction returned no choices")
		return nil, nil
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var entries []extractedOrder
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		e.logger.Error("Failed to decode extraction response",
			zap.Error(err),
			zap.String("content", content))
		return nil, nil
	}

	lines := make([]models.OrderLine, 0, len(entries))
	for _, entry := range entries {
		if entry.Company == "" || entry.Count <= 0 {
			e.logger.Warn("Dropping malformed extracted entry",
				zap.String("company", entry.Company),
				zap.Int("count", entry.Count))
			continue
		}
		lines = append(lines, models.OrderLine{
			Company: entry.Company,
			Product: entry.Product,
			Count:   entry.Count,
		})
	}

	e.logger.Info("Extraction completed",
		zap.Int("entries", len(lines)))

	return lines, nil
}

// stripCodeFence removes markdown fencing the model sometimes wraps
// around its JSON despite instructions.
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

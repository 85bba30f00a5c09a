package lark

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orderbot/sheetsync/internal/models"
)

// Resolution selects the terminal display a confirmation card mutates
// into once the prompt is decided.
type Resolution string

const (
	ResolutionCommitted Resolution = "committed"
	ResolutionCancelled Resolution = "cancelled"
)

// BuildConfirmationCard renders the interactive confirmation prompt for
// a batch. The serialized batch rides along in each button's value so
// the decision handler needs no server-side state to reconstruct it.
func BuildConfirmationCard(batch *models.OrderBatch, approvePayload, cancelPayload string) (string, error) {
	card := map[string]interface{}{
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"header": map[string]interface{}{
			"template": "blue",
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": "Confirm order entry",
			},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": batchSummary(batch),
				},
			},
			map[string]interface{}{
				"tag": "action",
				"actions": []interface{}{
					button("Approve", "primary", approvePayload),
					button("Cancel", "default", cancelPayload),
				},
			},
		},
	}

	data, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("failed to encode card: %w", err)
	}
	return string(data), nil
}

// BuildResolvedCard renders the terminal display replacing the prompt.
func BuildResolvedCard(resolution Resolution, batch *models.OrderBatch) (string, error) {
	title := "Orders written to sheet"
	template := "green"
	if resolution == ResolutionCancelled {
		title = "Order entry cancelled"
		template = "grey"
	}

	card := map[string]interface{}{
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"header": map[string]interface{}{
			"template": template,
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": title,
			},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": batchSummary(batch),
				},
			},
		},
	}

	data, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("failed to encode card: %w", err)
	}
	return string(data), nil
}

func button(label, kind, payload string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "button",
		"type": kind,
		"text": map[string]interface{}{
			"tag":     "plain_text",
			"content": label,
		},
		"value": map[string]interface{}{
			"payload": payload,
		},
	}
}

func batchSummary(batch *models.OrderBatch) string {
	var sb strings.Builder
	for _, line := range batch.Lines {
		fmt.Fprintf(&sb, "**%s**: %s x %d\n", line.Company, line.Product, line.Count)
	}
	return strings.TrimRight(sb.String(), "\n")
}

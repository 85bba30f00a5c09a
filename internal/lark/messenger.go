package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Messenger implements port.Messenger on top of the Lark IM API.
type Messenger struct {
	client *Client
	logger *zap.Logger
}

// NewMessenger creates a new messenger adapter.
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendCard posts an interactive card to a chat and returns the created
// message id.
func (m *Messenger) SendCard(ctx context.Context, channelID string, card string) (string, error) {
	return m.send(ctx, channelID, "interactive", card)
}

// SendText posts a plain text message to a chat.
func (m *Messenger) SendText(ctx context.Context, channelID string, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode text content: %w", err)
	}
	_, err = m.send(ctx, channelID, "text", string(content))
	return err
}

// UpdateCard replaces the content of an existing card message.
func (m *Messenger) UpdateCard(ctx context.Context, messageID string, card string) error {
	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(card).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Patch(ctx, req)
	if err != nil {
		m.logger.Error("Failed to patch message",
			zap.String("message_id", messageID),
			zap.Error(err))
		return fmt.Errorf("failed to patch message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure on patch",
			zap.String("message_id", messageID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}

func (m *Messenger) send(ctx context.Context, channelID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(channelID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("chat_id", channelID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", channelID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("chat_id", channelID),
		zap.String("msg_type", msgType))

	return messageID, nil
}

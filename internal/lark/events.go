package lark

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/orderbot/sheetsync/internal/models"
)

// Event types this bot subscribes to.
const (
	eventTypeMessageReceive  = "im.message.receive_v1"
	eventTypeMessageUpdated  = "im.message.updated_v1"
	eventTypeMessageRecalled = "im.message.recalled_v1"
)

// ErrUnhandledEvent marks webhook payloads whose event type the bot
// does not subscribe to.
var ErrUnhandledEvent = errors.New("unhandled event type")

type eventEnvelope struct {
	Header struct {
		EventID    string `json:"event_id"`
		EventType  string `json:"event_type"`
		CreateTime string `json:"create_time"`
	} `json:"header"`
	Event struct {
		Sender struct {
			SenderType string `json:"sender_type"`
			SenderID   struct {
				OpenID string `json:"open_id"`
				AppID  string `json:"app_id"`
			} `json:"sender_id"`
		} `json:"sender"`
		Message struct {
			MessageID   string `json:"message_id"`
			ChatID      string `json:"chat_id"`
			MessageType string `json:"message_type"`
			Content     string `json:"content"`
		} `json:"message"`
		// Recall events carry the identity at the event level.
		MessageID string `json:"message_id"`
		ChatID    string `json:"chat_id"`
	} `json:"event"`
}

type cardCallback struct {
	UUID          string `json:"uuid"`
	Token         string `json:"token"`
	OpenMessageID string `json:"open_message_id"`
	OpenChatID    string `json:"open_chat_id"`
	Action        struct {
		Value map[string]interface{} `json:"value"`
	} `json:"action"`
}

// DecodeEvent converts a Lark event callback body into a platform
// neutral message event. selfAppID is the app this bot authenticates
// as; only its own messages are flagged as echoes. Returns
// ErrUnhandledEvent for event types the pipeline does not consume.
func DecodeEvent(body []byte, selfAppID string) (*models.MessageEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}

	evt := &models.MessageEvent{
		EventID:        env.Header.EventID,
		EventTimestamp: parseMillis(env.Header.CreateTime),
		MessageID:      env.Event.Message.MessageID,
		ChannelID:      env.Event.Message.ChatID,
		AuthorIsSelf:   isSelf(env.Event.Sender.SenderType, env.Event.Sender.SenderID.AppID, selfAppID),
	}

	switch env.Header.EventType {
	case eventTypeMessageReceive:
		evt.Kind = models.EventMessageNew
		evt.Text = messageText(env.Event.Message.MessageType, env.Event.Message.Content)
	case eventTypeMessageUpdated:
		evt.Kind = models.EventMessageEdited
		evt.Text = messageText(env.Event.Message.MessageType, env.Event.Message.Content)
	case eventTypeMessageRecalled:
		evt.Kind = models.EventMessageDeleted
		if evt.MessageID == "" {
			evt.MessageID = env.Event.MessageID
		}
		if evt.ChannelID == "" {
			evt.ChannelID = env.Event.ChatID
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, env.Header.EventType)
	}

	if evt.MessageID == "" {
		return nil, fmt.Errorf("event %s carries no message id", env.Header.EventID)
	}

	return evt, nil
}

// DecodeCardAction converts a card button callback body into an action
// event. The button value's "payload" entry is the opaque string the
// workflow attached when it built the card.
func DecodeCardAction(body []byte) (*models.CardActionEvent, error) {
	var cb cardCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("failed to parse card callback: %w", err)
	}

	if cb.OpenMessageID == "" {
		return nil, fmt.Errorf("card callback carries no message id")
	}

	triggerID := cb.UUID
	if triggerID == "" {
		triggerID = cb.Token
	}

	value := ""
	if raw, ok := cb.Action.Value["payload"]; ok {
		if s, ok := raw.(string); ok {
			value = s
		}
	}

	return &models.CardActionEvent{
		TriggerID: triggerID,
		MessageID: cb.OpenMessageID,
		ChannelID: cb.OpenChatID,
		Value:     value,
	}, nil
}

// isSelf reports whether the sender is this bot. Human senders are
// never self. An app sender whose id cannot be compared (either side
// missing) is treated as self so unidentified bot traffic stays out of
// the pipeline.
func isSelf(senderType, senderAppID, selfAppID string) bool {
	if senderType != "app" {
		return false
	}
	if senderAppID == "" || selfAppID == "" {
		return true
	}
	return senderAppID == selfAppID
}

// messageText extracts the plain text of a message. Only text messages
// carry orders; other message types parse to empty text and fall out of
// the pipeline as empty batches.
func messageText(messageType, content string) string {
	if messageType != "" && messageType != "text" {
		return ""
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return ""
	}
	return body.Text
}

// parseMillis converts Lark's millisecond epoch strings. A zero time
// means the event carried no usable timestamp.
func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orderbot/sheetsync/internal/application/dispatcher"
	"github.com/orderbot/sheetsync/internal/lark"
	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// Handler receives Lark webhook callbacks and feeds them into the
// dispatch table. Events are processed asynchronously so the platform
// gets its 200 within its delivery deadline; slow processing is what
// causes the retried deliveries the dedup gate absorbs.
type Handler struct {
	verifier   *Verifier
	dispatcher *dispatcher.Dispatcher
	selfAppID  string
	logger     *zap.Logger
}

// NewHandler creates a new webhook handler. selfAppID identifies the
// bot's own messages in inbound events.
func NewHandler(verifier *Verifier, dispatcher *dispatcher.Dispatcher, selfAppID string, logger *zap.Logger) *Handler {
	return &Handler{
		verifier:   verifier,
		dispatcher: dispatcher,
		selfAppID:  selfAppID,
		logger:     logger,
	}
}

// HandleEvent processes message event callbacks.
func (h *Handler) HandleEvent(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	if h.answerChallenge(c, body) {
		return
	}

	evt, err := lark.DecodeEvent(body, h.selfAppID)
	if err != nil {
		if errors.Is(err, lark.ErrUnhandledEvent) {
			c.JSON(http.StatusOK, gin.H{"message": "Event type not supported"})
			return
		}
		h.logger.Error("Failed to decode event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	h.logger.Info("Received event",
		zap.String("event_id", evt.EventID),
		zap.String("event_kind", string(evt.Kind)))

	h.dispatcher.DispatchAsync(context.Background(), &dispatcher.Event{
		Kind:    evt.Kind,
		Message: evt,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Event received"})
}

// HandleCardAction processes interactive card button callbacks.
func (h *Handler) HandleCardAction(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	if h.answerChallenge(c, body) {
		return
	}

	action, err := lark.DecodeCardAction(body)
	if err != nil {
		h.logger.Error("Failed to decode card action", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse card action"})
		return
	}

	h.logger.Info("Received card action",
		zap.String("trigger_id", action.TriggerID),
		zap.String("prompt_message_id", action.MessageID))

	h.dispatcher.DispatchAsync(context.Background(), &dispatcher.Event{
		Kind:   models.EventCardAction,
		Action: action,
	})

	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return nil, false
	}
	return body, true
}

// answerChallenge responds to Lark's url_verification probe. Returns
// true when the request was a challenge and has been answered.
func (h *Handler) answerChallenge(c *gin.Context, body []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Type != "url_verification" {
		return false
	}

	challenge, err := h.verifier.VerifyChallenge(body)
	if err != nil {
		h.logger.Error("Challenge verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Challenge verification failed"})
		return true
	}

	h.logger.Info("Challenge verified")
	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
	return true
}

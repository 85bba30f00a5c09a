// Package service wires the inbound event stream through the dedup
// gate into parsing, approval and sheet reconciliation.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/orderbot/sheetsync/internal/application/dispatcher"
	"github.com/orderbot/sheetsync/internal/application/port"
	"github.com/orderbot/sheetsync/internal/dedup"
	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// MessageParser parses free text into order lines.
type MessageParser interface {
	ParseMessage(ctx context.Context, text string) ([]models.OrderLine, error)
}

// Approver is the confirmation workflow.
type Approver interface {
	RequestApproval(ctx context.Context, batch *models.OrderBatch) error
	Resolve(ctx context.Context, action models.CardActionEvent) error
}

// Reconciler applies edit and delete events to the tabular store,
// keyed by source-message identity.
type Reconciler interface {
	UpdateByTimestamp(ctx context.Context, ts string, lines []models.OrderLine) error
	DeleteByTimestamp(ctx context.Context, ts string) error
}

// OrderService handles the four inbound event kinds. Creates go
// through approval; edits and deletions bypass it and hit the store
// directly.
type OrderService struct {
	dedup      *dedup.Deduplicator
	parser     MessageParser
	approver   Approver
	reconciler Reconciler
	messenger  port.Messenger
	logger     *zap.Logger
}

// NewOrderService creates the order event service.
func NewOrderService(
	dedup *dedup.Deduplicator,
	parser MessageParser,
	approver Approver,
	reconciler Reconciler,
	messenger port.Messenger,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		dedup:      dedup,
		parser:     parser,
		approver:   approver,
		reconciler: reconciler,
		messenger:  messenger,
		logger:     logger,
	}
}

// Register binds the service's handlers into the dispatch table.
func (s *OrderService) Register(d *dispatcher.Dispatcher) {
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *dispatcher.Event) error {
		return s.HandleNewMessage(ctx, evt.Message)
	})
	d.Register(models.EventMessageEdited, func(ctx context.Context, evt *dispatcher.Event) error {
		return s.HandleEditedMessage(ctx, evt.Message)
	})
	d.Register(models.EventMessageDeleted, func(ctx context.Context, evt *dispatcher.Event) error {
		return s.HandleDeletedMessage(ctx, evt.Message)
	})
	d.Register(models.EventCardAction, func(ctx context.Context, evt *dispatcher.Event) error {
		return s.HandleCardAction(ctx, *evt.Action)
	})
}

// HandleNewMessage parses a fresh message and, if anything was
// extracted, asks for confirmation.
func (s *OrderService) HandleNewMessage(ctx context.Context, evt *models.MessageEvent) error {
	if s.skip(evt) {
		return nil
	}

	lines, err := s.parser.ParseMessage(ctx, evt.Text)
	if err != nil {
		return fmt.Errorf("failed to parse message %s: %w", evt.MessageID, err)
	}

	batch := &models.OrderBatch{Lines: lines}
	batch.Stamp(evt.ChannelID, evt.MessageID)

	return s.approver.RequestApproval(ctx, batch)
}

// HandleEditedMessage re-parses the edited text from scratch and
// replaces the message's rows in the store. No approval round trip:
// the original batch was already confirmed.
func (s *OrderService) HandleEditedMessage(ctx context.Context, evt *models.MessageEvent) error {
	if s.skip(evt) {
		return nil
	}

	lines, err := s.parser.ParseMessage(ctx, evt.Text)
	if err != nil {
		return fmt.Errorf("failed to parse edited message %s: %w", evt.MessageID, err)
	}
	for i := range lines {
		lines[i].SourceTimestamp = evt.MessageID
	}

	if err := s.reconciler.UpdateByTimestamp(ctx, evt.MessageID, lines); err != nil {
		s.surface(ctx, evt.ChannelID, fmt.Sprintf("Failed to update sheet rows: %v", err))
		return err
	}
	return nil
}

// HandleDeletedMessage removes the message's unprotected rows from the
// store.
func (s *OrderService) HandleDeletedMessage(ctx context.Context, evt *models.MessageEvent) error {
	if s.skip(evt) {
		return nil
	}

	if err := s.reconciler.DeleteByTimestamp(ctx, evt.MessageID); err != nil {
		s.surface(ctx, evt.ChannelID, fmt.Sprintf("Failed to delete sheet rows: %v", err))
		return err
	}
	return nil
}

// HandleCardAction resolves a confirmation prompt. Clicks are
// deduplicated by trigger id in the same recency set as messages.
func (s *OrderService) HandleCardAction(ctx context.Context, action models.CardActionEvent) error {
	if s.dedup.ShouldSkip(action.TriggerID, time.Time{}) {
		s.logger.Debug("Skipping duplicate card click",
			zap.String("trigger_id", action.TriggerID))
		return nil
	}
	return s.approver.Resolve(ctx, action)
}

// skip applies the same-origin echo filter and then the dedup gate.
// The echo check runs first: the bot's own writes must never enter the
// recency set.
func (s *OrderService) skip(evt *models.MessageEvent) bool {
	if evt.AuthorIsSelf {
		s.logger.Debug("Ignoring own message", zap.String("message_id", evt.MessageID))
		return true
	}
	return s.dedup.ShouldSkip(evt.EventID, evt.EventTimestamp)
}

func (s *OrderService) surface(ctx context.Context, channelID, msg string) {
	if channelID == "" {
		return
	}
	if err := s.messenger.SendText(ctx, channelID, msg); err != nil {
		s.logger.Error("Failed to surface error to channel",
			zap.String("chat_id", channelID),
			zap.Error(err))
	}
}

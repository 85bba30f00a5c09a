// Package workflow turns parsed order batches into interactive
// confirmation prompts and commits or discards them on the human
// decision.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/orderbot/sheetsync/internal/application/port"
	"github.com/orderbot/sheetsync/internal/lark"
	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// Decision values carried in the card button payload.
const (
	ActionApprove = "approve"
	ActionCancel  = "cancel"
)

// cardPayload is the opaque value attached to each card button. The
// whole batch round-trips through it so that no re-parsing happens at
// decision time.
type cardPayload struct {
	Action string             `json:"action"`
	Batch  *models.OrderBatch `json:"batch"`
}

// BatchSyncer appends a committed batch's lines to the tabular store.
// Satisfied by syncengine.Engine.
type BatchSyncer interface {
	Append(ctx context.Context, lines []models.OrderLine) error
}

// pendingApproval tracks one in-flight confirmation prompt. Held in
// memory only; a restart loses unresolved prompts. The batch is stored
// action-neutral: the decision comes exclusively from the clicked
// button's payload.
type pendingApproval struct {
	ChannelID string
	Batch     *models.OrderBatch
}

// Workflow owns the Parsed -> AwaitingApproval -> Committed/Cancelled
// state machine.
type Workflow struct {
	messenger port.Messenger
	syncer    BatchSyncer
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]pendingApproval // keyed by prompt message id
}

// New creates an approval workflow.
func New(messenger port.Messenger, syncer BatchSyncer, logger *zap.Logger) *Workflow {
	return &Workflow{
		messenger: messenger,
		syncer:    syncer,
		logger:    logger,
		pending:   make(map[string]pendingApproval),
	}
}

// RequestApproval sends a confirmation card for a non-empty batch.
// Empty batches terminate silently: no prompt, no store write.
func (w *Workflow) RequestApproval(ctx context.Context, batch *models.OrderBatch) error {
	if batch.Empty() {
		w.logger.Info("Nothing parsed from message, no prompt sent",
			zap.String("source_timestamp", batch.SourceTimestamp))
		return nil
	}

	approveVal, err := json.Marshal(cardPayload{Action: ActionApprove, Batch: batch})
	if err != nil {
		return fmt.Errorf("failed to encode approve payload: %w", err)
	}
	cancelVal, err := json.Marshal(cardPayload{Action: ActionCancel, Batch: batch})
	if err != nil {
		return fmt.Errorf("failed to encode cancel payload: %w", err)
	}

	card, err := lark.BuildConfirmationCard(batch, string(approveVal), string(cancelVal))
	if err != nil {
		return fmt.Errorf("failed to build confirmation card: %w", err)
	}

	messageID, err := w.messenger.SendCard(ctx, batch.ChannelID, card)
	if err != nil {
		return fmt.Errorf("failed to send confirmation prompt: %w", err)
	}

	w.mu.Lock()
	w.pending[messageID] = pendingApproval{ChannelID: batch.ChannelID, Batch: batch}
	w.mu.Unlock()

	w.logger.Info("Awaiting approval",
		zap.String("prompt_message_id", messageID),
		zap.String("source_timestamp", batch.SourceTimestamp),
		zap.Int("lines", len(batch.Lines)))

	return nil
}

// Resolve handles a button click on a confirmation card. Both outcomes
// are terminal; a click on an already-resolved prompt is acknowledged
// without error and without side effects. A click that does not carry a
// decodable approve or cancel decision is logged and ignored, leaving
// the prompt pending: the store is only ever written on an explicit
// approve.
func (w *Workflow) Resolve(ctx context.Context, action models.CardActionEvent) error {
	if action.Value == "" {
		w.logger.Warn("Ignoring click without a decision payload",
			zap.String("prompt_message_id", action.MessageID))
		return nil
	}

	var payload cardPayload
	if err := json.Unmarshal([]byte(action.Value), &payload); err != nil {
		w.logger.Warn("Ignoring click with undecodable payload",
			zap.String("prompt_message_id", action.MessageID),
			zap.Error(err))
		return nil
	}
	if payload.Action != ActionApprove && payload.Action != ActionCancel {
		return fmt.Errorf("unknown card action %q", payload.Action)
	}

	w.mu.Lock()
	entry, ok := w.pending[action.MessageID]
	if ok {
		delete(w.pending, action.MessageID)
	}
	w.mu.Unlock()

	if !ok {
		w.logger.Info("Ignoring click on resolved or unknown prompt",
			zap.String("prompt_message_id", action.MessageID))
		return nil
	}

	batch := payload.Batch
	if batch == nil {
		batch = entry.Batch
	}

	switch payload.Action {
	case ActionApprove:
		return w.commit(ctx, action.MessageID, batch)
	default:
		return w.cancel(ctx, action.MessageID, batch)
	}
}

// PendingCount reports the number of unresolved prompts.
func (w *Workflow) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Workflow) commit(ctx context.Context, messageID string, batch *models.OrderBatch) error {
	if err := w.syncer.Append(ctx, batch.Lines); err != nil {
		w.logger.Error("Failed to sync approved batch",
			zap.String("source_timestamp", batch.SourceTimestamp),
			zap.Error(err))
		if msgErr := w.messenger.SendText(ctx, batch.ChannelID,
			fmt.Sprintf("Failed to write orders to the sheet: %v", err)); msgErr != nil {
			w.logger.Error("Failed to report sync error", zap.Error(msgErr))
		}
		return err
	}

	card, err := lark.BuildResolvedCard(lark.ResolutionCommitted, batch)
	if err != nil {
		return err
	}
	if err := w.messenger.UpdateCard(ctx, messageID, card); err != nil {
		w.logger.Error("Failed to update prompt after commit",
			zap.String("prompt_message_id", messageID),
			zap.Error(err))
	}

	w.logger.Info("Batch committed",
		zap.String("source_timestamp", batch.SourceTimestamp),
		zap.Int("lines", len(batch.Lines)))
	return nil
}

func (w *Workflow) cancel(ctx context.Context, messageID string, batch *models.OrderBatch) error {
	card, err := lark.BuildResolvedCard(lark.ResolutionCancelled, batch)
	if err != nil {
		return err
	}
	if err := w.messenger.UpdateCard(ctx, messageID, card); err != nil {
		w.logger.Error("Failed to update prompt after cancel",
			zap.String("prompt_message_id", messageID),
			zap.Error(err))
	}

	w.logger.Info("Batch cancelled",
		zap.String("source_timestamp", batch.SourceTimestamp))
	return nil
}

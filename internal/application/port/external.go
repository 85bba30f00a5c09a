// Package port defines the interfaces between the core pipeline and the
// external collaborators it must be testable against.
package port

import (
	"context"

	"github.com/orderbot/sheetsync/internal/models"
)

// Extractor is the AI text-extraction service used when the fast parser
// cannot match a message.
type Extractor interface {
	// Extract pulls (company, product, count) triples out of free text.
	// Implementations degrade to an empty slice on malformed output or
	// missing credentials; they never fail the pipeline for those.
	Extract(ctx context.Context, text string) ([]models.OrderLine, error)
}

// Messenger sends and mutates chat messages on the messaging platform.
type Messenger interface {
	// SendCard posts an interactive card to a channel and returns the
	// identity of the created message.
	SendCard(ctx context.Context, channelID string, card string) (string, error)

	// UpdateCard replaces the content of an existing card message.
	UpdateCard(ctx context.Context, messageID string, card string) error

	// SendText posts a plain text message, used to surface errors to the
	// channel that triggered them.
	SendText(ctx context.Context, channelID string, text string) error
}

// TabularStore is the external spreadsheet-like store. Tables are
// addressed by name; rows by absolute index as the store reports them.
type TabularStore interface {
	ListTables(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, name string, header []string) error
	AppendRow(ctx context.Context, table string, row []string) error
	ReadAllRows(ctx context.Context, table string) ([][]string, error)
	// DeleteRow removes the row at the given zero-based index. Callers
	// deleting multiple rows in one scan must go high-to-low.
	DeleteRow(ctx context.Context, table string, rowIndex int) error
}

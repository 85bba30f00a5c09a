// Package syncengine maps confirmed order batches and source-message
// edit/delete events onto operations against the tabular store.
package syncengine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orderbot/sheetsync/internal/application/port"
	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// Row layout shared by the master table and every per-company table.
var headerRow = []string{"Company", "Product", "Count", "Source Timestamp", "Written At", "Remarks"}

const (
	colTimestamp = 3
	colRemarks   = 5

	// literalMarker keeps the store from reinterpreting the source
	// timestamp as a number.
	literalMarker = "'"

	// defaultMasterTable is only used when the store has no tables at
	// all; otherwise the existing first table is the master, whatever
	// its name.
	defaultMasterTable = "orders"
)

// Engine performs idempotent append/delete/update operations keyed by
// source-message identity. It holds no state between calls; table names
// and existing rows are re-read from the store on every operation.
type Engine struct {
	store    port.TabularStore
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewEngine creates a sync engine writing localized timestamps in the
// given location.
func NewEngine(store port.TabularStore, location *time.Location, logger *zap.Logger) *Engine {
	if location == nil {
		location = time.Local
	}
	return &Engine{
		store:    store,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Append writes one row per line to the line's per-company table and
// duplicates it into the master table. The per-company write is
// authoritative and its failure aborts the line; the master write is
// best-effort and only logged.
func (e *Engine) Append(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	master, err := e.masterTable(ctx)
	if err != nil {
		return err
	}

	writtenAt := e.now().In(e.location).Format("2006-01-02 15:04:05")

	for _, line := range lines {
		if err := e.ensureTable(ctx, line.Company); err != nil {
			return err
		}

		row := []string{
			line.Company,
			line.Product,
			strconv.Itoa(line.Count),
			literalMarker + line.SourceTimestamp,
			writtenAt,
			"",
		}

		if err := e.store.AppendRow(ctx, line.Company, row); err != nil {
			return fmt.Errorf("failed to append to table %q: %w", line.Company, err)
		}

		if err := e.store.AppendRow(ctx, master, row); err != nil {
			e.logger.Error("Master table append failed",
				zap.String("table", master),
				zap.String("company", line.Company),
				zap.Error(err))
		}
	}

	return nil
}

// DeleteByTimestamp removes every row whose source timestamp matches ts
// from every table in the store. Rows with a non-empty remarks column
// are left untouched: manual annotations win over automated sync. Each
// table is scanned bottom-up so deletions never shift indices of rows
// not yet examined.
func (e *Engine) DeleteByTimestamp(ctx context.Context, ts string) error {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	target := strings.TrimSpace(ts)

	for _, table := range tables {
		rows, err := e.store.ReadAllRows(ctx, table)
		if err != nil {
			return fmt.Errorf("failed to read table %q: %w", table, err)
		}

		for i := len(rows) - 1; i >= 0; i-- {
			row := rows[i]
			if len(row) <= colTimestamp {
				continue
			}
			stamp := strings.TrimSpace(strings.TrimPrefix(row[colTimestamp], literalMarker))
			if stamp != target {
				continue
			}
			if len(row) > colRemarks && strings.TrimSpace(row[colRemarks]) != "" {
				e.logger.Info("Skipping protected row",
					zap.String("table", table),
					zap.Int("row", i),
					zap.String("source_timestamp", target))
				continue
			}
			if err := e.store.DeleteRow(ctx, table, i); err != nil {
				return fmt.Errorf("failed to delete row %d from table %q: %w", i, table, err)
			}
		}
	}

	return nil
}

// UpdateByTimestamp reconciles an edited source message: the old rows
// are deleted and the new lines appended. Never an in-place cell edit,
// so an update always regenerates a fresh written-at timestamp.
func (e *Engine) UpdateByTimestamp(ctx context.Context, ts string, lines []models.OrderLine) error {
	if err := e.DeleteByTimestamp(ctx, ts); err != nil {
		return err
	}
	return e.Append(ctx, lines)
}

// ensureTable creates the named table with the header row if it does
// not exist yet. Safe to call before every write.
func (e *Engine) ensureTable(ctx context.Context, name string) error {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	for _, t := range tables {
		if t == name {
			return nil
		}
	}
	if err := e.store.CreateTable(ctx, name, headerRow); err != nil {
		return fmt.Errorf("failed to create table %q: %w", name, err)
	}
	e.logger.Info("Created table", zap.String("table", name))
	return nil
}

// masterTable resolves the store's first table, creating a default one
// only when the store is completely empty. An existing but blank first
// table gets the header row before its first data row.
func (e *Engine) masterTable(ctx context.Context) (string, error) {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	if len(tables) == 0 {
		if err := e.store.CreateTable(ctx, defaultMasterTable, headerRow); err != nil {
			return "", fmt.Errorf("failed to create master table: %w", err)
		}
		return defaultMasterTable, nil
	}

	master := tables[0]
	rows, err := e.store.ReadAllRows(ctx, master)
	if err != nil {
		return "", fmt.Errorf("failed to read master table %q: %w", master, err)
	}
	if len(rows) == 0 {
		if err := e.store.AppendRow(ctx, master, headerRow); err != nil {
			e.logger.Error("Failed to write master header", zap.String("table", master), zap.Error(err))
		}
	}
	return master, nil
}

// Package storage implements the tabular store on an Excel workbook:
// the workbook is the store, its sheets are the tables.
package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExcelStore implements port.TabularStore over a single .xlsx file.
// Every operation opens the workbook fresh and saves it back, so no
// state is held between calls; a mutex serializes file access.
type ExcelStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewExcelStore opens the store at path, creating an empty workbook if
// none exists yet.
func NewExcelStore(path string, logger *zap.Logger) (*ExcelStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f := excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("failed to create workbook %q: %w", path, err)
		}
		logger.Info("Created workbook", zap.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("failed to access workbook %q: %w", path, err)
	}

	return &ExcelStore{path: path, logger: logger}, nil
}

// ListTables returns the workbook's sheet names in sheet order.
func (s *ExcelStore) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// CreateTable adds a sheet with the given header row.
func (s *ExcelStore) CreateTable(ctx context.Context, name string, header []string) error {
	return s.withWorkbook(func(f *excelize.File) error {
		if idx, _ := f.GetSheetIndex(name); idx != -1 {
			return fmt.Errorf("sheet %q already exists", name)
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header of %q: %w", name, err)
		}
		return nil
	})
}

// AppendRow adds a row after the sheet's last occupied row.
func (s *ExcelStore) AppendRow(ctx context.Context, table string, row []string) error {
	return s.withWorkbook(func(f *excelize.File) error {
		rows, err := f.GetRows(table)
		if err != nil {
			return fmt.Errorf("failed to read sheet %q: %w", table, err)
		}
		cell := fmt.Sprintf("A%d", len(rows)+1)
		if err := f.SetSheetRow(table, cell, &row); err != nil {
			return fmt.Errorf("failed to append to sheet %q: %w", table, err)
		}
		return nil
	})
}

// ReadAllRows returns all rows of a sheet as strings.
func (s *ExcelStore) ReadAllRows(ctx context.Context, table string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", table, err)
	}
	return rows, nil
}

// DeleteRow removes the row at the given zero-based index.
func (s *ExcelStore) DeleteRow(ctx context.Context, table string, rowIndex int) error {
	return s.withWorkbook(func(f *excelize.File) error {
		// excelize rows are 1-based.
		if err := f.RemoveRow(table, rowIndex+1); err != nil {
			return fmt.Errorf("failed to delete row %d from sheet %q: %w", rowIndex, table, err)
		}
		return nil
	})
}

// withWorkbook runs a mutation against the opened workbook and saves it.
func (s *ExcelStore) withWorkbook(fn func(f *excelize.File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

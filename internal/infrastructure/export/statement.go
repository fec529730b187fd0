package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// StatementWriter renders accounting statements of validated invoices as
// Excel workbooks
type StatementWriter struct {
	outputDir string
	logger    *zap.Logger
}

// NewStatementWriter creates a new statement writer
func NewStatementWriter(outputDir string, logger *zap.Logger) *StatementWriter {
	return &StatementWriter{
		outputDir: outputDir,
		logger:    logger,
	}
}

var statementHeader = []string{
	"Invoice Number", "Stay ID", "Status",
	"Net", "Tax", "Gross",
	"Medical Approved At", "Sinistre Approved At", "Compta Approved At",
}

// Write renders one statement for the given invoices and returns the path of
// the written file. Amounts are written in currency units, not cents.
func (w *StatementWriter) Write(invoices []*entity.Invoice, asOf time.Time) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, title := range statementHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to compute header cell: %w", err)
		}
		w.setCell(f, sheet, cell, title)
	}

	var totalNet, totalTax, totalGross int64
	for i, invoice := range invoices {
		row := i + 2
		w.setCell(f, sheet, cellAt(1, row), invoice.Number)
		w.setCell(f, sheet, cellAt(2, row), invoice.StayID)
		w.setCell(f, sheet, cellAt(3, row), invoice.Status.String())
		w.setCell(f, sheet, cellAt(4, row), centsToUnits(invoice.NetCents))
		w.setCell(f, sheet, cellAt(5, row), centsToUnits(invoice.TaxCents))
		w.setCell(f, sheet, cellAt(6, row), centsToUnits(invoice.GrossCents))
		w.setCell(f, sheet, cellAt(7, row), decidedAt(invoice.Medical))
		w.setCell(f, sheet, cellAt(8, row), decidedAt(invoice.Sinistre))
		w.setCell(f, sheet, cellAt(9, row), decidedAt(invoice.Compta))

		totalNet += invoice.NetCents
		totalTax += invoice.TaxCents
		totalGross += invoice.GrossCents
	}

	totalRow := len(invoices) + 3
	w.setCell(f, sheet, cellAt(1, totalRow), "Total")
	w.setCell(f, sheet, cellAt(4, totalRow), centsToUnits(totalNet))
	w.setCell(f, sheet, cellAt(5, totalRow), centsToUnits(totalTax))
	w.setCell(f, sheet, cellAt(6, totalRow), centsToUnits(totalGross))

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	outputPath := filepath.Join(w.outputDir,
		fmt.Sprintf("statement_%s.xlsx", asOf.Format("20060102_150405")))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save statement: %w", err)
	}

	w.logger.Info("Statement written",
		zap.String("output_path", outputPath),
		zap.Int("invoice_count", len(invoices)))

	return outputPath, nil
}

// setCell sets a cell value, logging failures instead of aborting the export
func (w *StatementWriter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func cellAt(col, row int) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return cell
}

func centsToUnits(cents int64) float64 {
	return float64(cents) / 100
}

func decidedAt(d entity.StageDecision) string {
	if d.DecidedAt == nil {
		return ""
	}
	return d.DecidedAt.Format("2006-01-02 15:04")
}

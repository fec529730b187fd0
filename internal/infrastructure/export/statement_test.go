package export

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

func testInvoice(number string, stayID, netCents, taxCents int64) *entity.Invoice {
	approved := entity.DecisionApproved
	decidedAt := time.Date(2026, 7, 2, 14, 30, 0, 0, time.UTC)
	decision := entity.StageDecision{Value: &approved, DecidedAt: &decidedAt}
	return &entity.Invoice{
		Number:     number,
		StayID:     stayID,
		Status:     entity.InvoiceStatusValidated,
		NetCents:   netCents,
		TaxCents:   taxCents,
		GrossCents: netCents + taxCents,
		Medical:    decision,
		Sinistre:   decision,
		Compta:     decision,
	}
}

func TestStatementWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewStatementWriter(dir, zap.NewNop())

	invoices := []*entity.Invoice{
		testInvoice("INV-2026-AAAA0001", 1, 137_500, 27_500),
		testInvoice("INV-2026-AAAA0002", 2, 85_000, 17_000),
	}
	asOf := time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC)

	path, err := w.Write(invoices, asOf)
	require.NoError(t, err)
	assert.Contains(t, path, "statement_20260703_090000.xlsx")

	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice Number", header)

	number, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-AAAA0001", number)

	// Amounts land in currency units.
	net, err := f.GetCellValue(sheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "1375", net)

	decided, err := f.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-02 14:30", decided)

	// Totals row sits one blank row under the invoices.
	totalLabel, err := f.GetCellValue(sheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total", totalLabel)
	totalGross, err := f.GetCellValue(sheet, "F5")
	require.NoError(t, err)
	assert.Equal(t, "2670", totalGross)
}

func TestStatementWrite_Empty(t *testing.T) {
	dir := t.TempDir()
	w := NewStatementWriter(dir, zap.NewNop())

	path, err := w.Write(nil, time.Now())
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
	"github.com/ginjaninja78/photo-sale-ledger/pkg/utils"
)

var exportTime = time.Date(2026, 3, 15, 18, 0, 0, 0, time.Local)

func line(ref, lastname, activity, photo, qty, amount string, status record.Status) record.Row {
	row := record.NewRow()
	row.Set(record.FieldReference, ref)
	row.Set(record.FieldLastname, lastname)
	row.Set(record.FieldFirstname, "Alex")
	row.Set(record.FieldPhone, "0600000000")
	row.Set(record.FieldCreatedAt, "2026-03-14 10:00:00")
	row.Set(record.FieldActivityKey, activity)
	row.Set(record.FieldPhotoName, photo)
	row.Set(record.FieldQuantity, qty)
	row.Set(record.FieldLineAmount, amount)
	row.Set(record.FieldCommandStatus, string(status))
	return row
}

func sampleRows() []record.Row {
	return []record.Row{
		line("CMD001", "Martin", "Gala", "IMG_001.jpg", "1", "2.00", record.StatusPaid),
		line("CMD001", "Martin", "Gala", "IMG_002.jpg", "2", "4.00", record.StatusPaid),
		line("CMD002", "Durand", "Gala", "IMG_001.jpg", "3", "6.00", record.StatusPaid),
		line("CMD002", "Durand", "USB", "Cle USB", "1", "15.00", record.StatusPaid),
		line("CMD003", "Petit", "Gala", "IMG_003.jpg", "1", "2.00", record.StatusValidated),
		line("CMD004", "=HYPERLINK(\"x\")", "Concert", "IMG_010.jpg", "1", "2.00", record.StatusRetrieved),
	}
}

func TestPrinterSummary(t *testing.T) {
	lines := PrinterSummary(PaidRows(sampleRows()), "USB")
	assert.Equal(t, []PrintLine{
		{Activity: "Gala", Photo: "IMG_001.jpg", Quantity: 4},
		{Activity: "Gala", Photo: "IMG_002.jpg", Quantity: 2},
	}, lines)
}

func TestPickingLists(t *testing.T) {
	paid := PaidRows(sampleRows())

	byActivity := PickingByActivity(paid, strings.ToUpper)
	require.Len(t, byActivity, 2)
	assert.Equal(t, "GALA", byActivity[0].Title)
	assert.Equal(t, 6, byActivity[0].Total)
	assert.Len(t, byActivity[0].Entries, 3)

	byPhoto := PickingByPhoto(paid)
	require.Len(t, byPhoto, 3)
	assert.Equal(t, "Gala / IMG_001.jpg", byPhoto[0].Title)
	assert.Equal(t, 4, byPhoto[0].Total)

	byOrder := PickingByOrder(paid)
	require.Len(t, byOrder, 2)
	assert.Equal(t, "CMD001 - Martin Alex", byOrder[0].Title)
	assert.Equal(t, "CMD002", byOrder[1].Entries[0].Reference)
}

func TestDistributionList(t *testing.T) {
	rows := sampleRows()
	rows[0].Set(record.FieldRetrievalDate, "2026-03-15 10:00:00")

	entries := DistributionList(rows, "USB")
	require.Len(t, entries, 1)
	assert.Equal(t, "CMD002", entries[0].Reference)
	assert.Equal(t, 3, entries[0].Photos)
	assert.Equal(t, 1, entries[0].USB)
	assert.Equal(t, "21.00", record.FormatAmount(entries[0].Amount))
}

func TestDailySettlement(t *testing.T) {
	settlements := []record.SettlementRecord{
		{Reference: "CMD001", PaymentDate: "2026-03-15", Amount: decimal.RequireFromString("6")},
		{Reference: "CMD002", PaymentDate: "2026-03-15 17:00:00", Amount: decimal.RequireFromString("21")},
		{Reference: "CMD003", PaymentDate: "2026-03-14", Amount: decimal.RequireFromString("2")},
	}

	selected, total := DailySettlement(settlements, "2026-03-15")
	require.Len(t, selected, 2)
	assert.Equal(t, "27.00", record.FormatAmount(total))
}

func TestSupplierSplit(t *testing.T) {
	split := SupplierSplit(PaidRows(sampleRows()), "usb")
	assert.Len(t, split.SupplierA, 3)
	require.Len(t, split.SupplierB, 1)
	assert.Equal(t, "CMD002", split.SupplierB[0].Reference)
}

func TestWriteXLSXSanitizesCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, []Sheet{
		{Name: "A", Table: [][]string{{"Ref", "Client"}, {"CMD004", "=cmd|'/c calc'!A0"}}},
		{Name: "B", Table: [][]string{{"Ref"}}},
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue("A", "B2")
	require.NoError(t, err)
	assert.Equal(t, "'=cmd|'/c calc'!A0", value)
	assert.Equal(t, []string{"A", "B"}, f.GetSheetList())
}

func newTestExporter(t *testing.T) (*Exporter, *ledger.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := ledger.NewStore(ledger.DefaultPaths(filepath.Join(dir, "data")), ledger.Options{
		USBFolder: "USB",
		Now:       func() time.Time { return exportTime },
	})
	outputDir := filepath.Join(dir, "exports")
	exporter := NewExporter(store, Config{
		Files:     utils.NewFileManager(outputDir, ""),
		Prices:    pricing.New([]pricing.Activity{{Key: "Gala", DisplayName: "Gala de danse"}}),
		USBFolder: "USB",
		Now:       func() time.Time { return exportTime },
	})
	return exporter, store, outputDir
}

func TestExporterRun(t *testing.T) {
	exporter, store, outputDir := newTestExporter(t)

	var rows []record.Row
	for _, row := range sampleRows() {
		row.Set(record.FieldCommandStatus, string(record.StatusValidated))
		rows = append(rows, row)
	}
	require.NoError(t, store.AppendRows(rows))
	for _, ref := range []string{"CMD001", "CMD002"} {
		require.True(t, store.RecordPayment(ledger.PaymentRequest{Reference: ref, Mode: "Cheque", Date: "2026-03-15"}).Success)
	}

	ledgerBefore, err := os.ReadFile(store.Paths().Ledger)
	require.NoError(t, err)

	summary, err := exporter.Run(Request{})
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 2, summary.Orders)
	assert.Len(t, summary.Reports, 10)

	runDir := filepath.Join(outputDir, "20260315_180000")
	assert.True(t, utils.FileExists(filepath.Join(runDir, "export_summary_20260315_180000.txt")))

	settlement, err := csvcodec.ReadFile(filepath.Join(runDir, "daily_settlement_20260315_180000.csv"), 0)
	require.NoError(t, err)
	require.Len(t, settlement, 3)
	assert.Equal(t, record.SettlementHeader, settlement[0])

	supplierB, err := csvcodec.ReadFile(filepath.Join(runDir, "supplier_split_b_20260315_180000.csv"), 0)
	require.NoError(t, err)
	assert.Len(t, supplierB, 2)

	picking, err := os.ReadFile(filepath.Join(runDir, "picking_by_activity_20260315_180000.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(picking), "Gala de danse (6)")

	ledgerAfter, err := os.ReadFile(store.Paths().Ledger)
	require.NoError(t, err)
	assert.Equal(t, ledgerBefore, ledgerAfter)
}

func TestExporterRunEmptyLedgerAndUnknownKind(t *testing.T) {
	exporter, _, _ := newTestExporter(t)

	summary, err := exporter.Run(Request{Kinds: []string{KindPrinterSummary}})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Orders)
	assert.Len(t, summary.Reports, 1)

	_, err = exporter.Run(Request{Kinds: []string{"invoices"}})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

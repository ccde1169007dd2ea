package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var fixedNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(DefaultPaths(dir), Options{
		USBFolder:     "USB",
		AutoRepairBOM: true,
		Now:           func() time.Time { return fixedNow },
	})
}

func item(ref, created, activity, photo, qty, amount string) record.Row {
	row := record.NewRow()
	row.Set(record.FieldReference, ref)
	row.Set(record.FieldLastname, "Martin")
	row.Set(record.FieldFirstname, "Claire")
	row.Set(record.FieldEmail, "claire@example.org")
	row.Set(record.FieldPhone, "0600000000")
	row.Set(record.FieldCreatedAt, created)
	row.Set(record.FieldActivityKey, activity)
	row.Set(record.FieldPhotoName, photo)
	row.Set(record.FieldQuantity, qty)
	row.Set(record.FieldLineAmount, amount)
	row.Set(record.FieldCommandStatus, string(record.StatusValidated))
	return row
}

// seedOrder writes CMD001 with two line items: 1 x 2.00 and 2 x 2.00.
func seedOrder(t *testing.T, s *Store, ref, created string) {
	t.Helper()
	require.NoError(t, s.AppendRows([]record.Row{
		item(ref, created, "Gala", "IMG_001.jpg", "1", "2.00"),
		item(ref, created, "Gala", "IMG_002.jpg", "2", "4.00"),
	}))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReadAllEmptyLedger(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadAll()
	assert.ErrorIs(t, err, ErrEmptyLedger)

	require.NoError(t, csvcodec.WriteFile(s.Paths().Ledger, [][]string{record.Header}))
	_, err = s.ReadAll()
	assert.ErrorIs(t, err, ErrEmptyLedger)
}

func TestAppendAndFind(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, "CMD001", "2026-03-14 10:00:00")
	seedOrder(t, s, "CMD002", "2026-03-14 11:00:00")

	rows, err := s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	found, err := s.FindRowsByReference("CMD002")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "IMG_001.jpg", found[0].Get(record.FieldPhotoName))

	_, err = s.FindRowsByReference("CMD999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindRowsByReference(" ")
	assert.ErrorIs(t, err, ErrValidation)

	content := readFile(t, s.Paths().Ledger)
	assert.Equal(t, 1, strings.Count(content, csvcodec.BOM))
	assert.True(t, strings.HasPrefix(content, csvcodec.BOM+"REF;"))
}

func TestRewriteWithUpdate(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, "CMD001", "2026-03-14 10:00:00")
	seedOrder(t, s, "CMD002", "2026-03-14 11:00:00")

	count, err := s.RewriteWithUpdate("CMD001", record.FieldUpdates{record.FieldPhone: "0611111111"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := s.FindRowsByReference("CMD001")
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "0611111111", row.Get(record.FieldPhone))
	}
	other, err := s.FindRowsByReference("CMD002")
	require.NoError(t, err)
	assert.Equal(t, "0600000000", other[0].Get(record.FieldPhone))

	_, err = s.RewriteWithUpdate("CMD404", record.FieldUpdates{record.FieldPhone: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.RewriteWithUpdate("CMD001", record.FieldUpdates{"unknown": "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRemoveByReference(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, "CMD001", "2026-03-14 10:00:00")
	seedOrder(t, s, "CMD002", "2026-03-14 11:00:00")

	removed, err := s.RemoveByReference("CMD001")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = s.RemoveByReference("CMD001")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	rows, err := s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReplaceOrder(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, "CMD001", "2026-03-14 10:00:00")

	replacement := []record.Row{item("CMD001", "2026-03-14 10:30:00", "Gala", "IMG_009.jpg", "3", "6.00")}
	removed, err := s.ReplaceOrder("CMD001", replacement)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	rows, err := s.FindRowsByReference("CMD001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "IMG_009.jpg", rows[0].Get(record.FieldPhotoName))

	result := s.RecordPayment(PaymentRequest{Reference: "CMD001", Mode: "Cheque", Date: "2026-03-15"})
	require.True(t, result.Success)

	_, err = s.ReplaceOrder("CMD001", replacement)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReadRepairsBOMCorruption(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, "CMD001", "2026-03-14 10:00:00")

	content := readFile(t, s.Paths().Ledger)
	corrupted := strings.Repeat(csvcodec.BOM, 2) + content
	require.NoError(t, os.WriteFile(s.Paths().Ledger, []byte(corrupted), 0644))

	rows, err := s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, strings.Count(readFile(t, s.Paths().Ledger), csvcodec.BOM))
}

func TestReadFailsOnBOMCorruptionWithoutRepair(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(DefaultPaths(dir), Options{})
	data := strings.Repeat(csvcodec.BOM, 3) + "REF;Nom\nCMD001;Martin\n"
	require.NoError(t, os.WriteFile(s.Paths().Ledger, []byte(data), 0644))

	_, err := s.ReadAll()
	assert.ErrorIs(t, err, ErrBOMCorruption)
	assert.Equal(t, ReasonBOMCorruption, ReasonOf(err))
}

func TestConcurrentPaymentsDoNotLoseUpdates(t *testing.T) {
	s := newTestStore(t)
	refs := []string{"CMD001", "CMD002", "CMD003", "CMD004", "CMD005"}
	for _, ref := range refs {
		seedOrder(t, s, ref, "2026-03-14 10:00:00")
	}

	var wg sync.WaitGroup
	for _, ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			result := s.RecordPayment(PaymentRequest{Reference: ref, Mode: "Especes", Date: "2026-03-15"})
			assert.True(t, result.Success, result.Message)
		}(ref)
	}
	wg.Wait()

	rows, err := s.ReadAll()
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, record.StatusPaid, row.Status(), row.Reference())
	}

	settlements, err := s.ReadSettlements()
	require.NoError(t, err)
	assert.Len(t, settlements, len(refs))
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths("data")
	assert.Equal(t, filepath.Join("data", "commandes.csv"), paths.Ledger)
	assert.Equal(t, filepath.Join("data", "commandes_reglees.csv"), paths.Settlement)
	assert.Equal(t, filepath.Join("data", "commandes_a_preparer.csv"), paths.Preparation)
	assert.Equal(t, filepath.Join("data", "commandes_archives.csv"), paths.Archive)
}

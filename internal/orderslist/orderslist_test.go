package orderslist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/order"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var today = time.Date(2026, 3, 15, 18, 0, 0, 0, time.Local)

func row(ref, qty, amount string, status record.Status) record.Row {
	r := record.NewRow()
	r.Set(record.FieldReference, ref)
	r.Set(record.FieldLastname, "Martin")
	r.Set(record.FieldEmail, "claire@example.org")
	r.Set(record.FieldCreatedAt, "2026-03-14 10:00:00")
	r.Set(record.FieldActivityKey, "Gala")
	r.Set(record.FieldPhotoName, "IMG_"+ref+".jpg")
	r.Set(record.FieldQuantity, qty)
	r.Set(record.FieldLineAmount, amount)
	r.Set(record.FieldCommandStatus, string(status))
	return r
}

func seededList(t *testing.T) *OrdersList {
	t.Helper()
	store := ledger.NewStore(ledger.DefaultPaths(t.TempDir()), ledger.Options{
		Now: func() time.Time { return today },
	})
	require.NoError(t, store.AppendRows([]record.Row{
		row("CMD001", "1", "2.00", record.StatusValidated),
		row("CMD002", "2", "4.00", record.StatusValidated),
		row("CMD001", "2", "4.00", record.StatusValidated),
		row("CMD003", "1", "2.00", record.StatusValidated),
	}))

	require.True(t, store.RecordPayment(ledger.PaymentRequest{Reference: "CMD002", Mode: "Cheque", Date: "2026-03-15"}).Success)
	require.True(t, store.RecordPayment(ledger.PaymentRequest{Reference: "CMD003", Mode: "Especes", Date: "2026-03-14"}).Success)
	require.True(t, store.UpdateRetrievalStatus("CMD003", today).Success)

	return New(store)
}

func references(orders []order.Data) []string {
	refs := make([]string, len(orders))
	for i, o := range orders {
		refs[i] = o.Reference
	}
	return refs
}

func TestLoadOrdersDataFilters(t *testing.T) {
	list := seededList(t)

	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"CMD001", "CMD002", "CMD003"}},
		{FilterUnpaid, []string{"CMD001"}},
		{FilterValidated, []string{"CMD001"}},
		{FilterPaid, []string{"CMD002", "CMD003"}},
		{FilterToRetrieve, []string{"CMD002"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			orders, err := list.LoadOrdersData(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, references(orders))
		})
	}
}

func TestLoadOrdersDataGroupsLineItems(t *testing.T) {
	list := seededList(t)

	orders, err := list.LoadOrdersData(FilterValidated)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
	assert.Equal(t, 3, orders[0].TotalPhotos)
	assert.Equal(t, "6.00", record.FormatAmount(orders[0].TotalPrice))
}

func TestLoadOrdersDataEmptyLedger(t *testing.T) {
	store := ledger.NewStore(ledger.DefaultPaths(t.TempDir()), ledger.Options{})
	orders, err := New(store).LoadOrdersData(FilterAll)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCalculateStats(t *testing.T) {
	list := seededList(t)
	orders, err := list.LoadOrdersData(FilterAll)
	require.NoError(t, err)

	stats := CalculateStats(orders, today)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 6, stats.TotalPhotos)
	assert.Equal(t, "12.00", record.FormatAmount(stats.TotalAmount))
	assert.Equal(t, 1, stats.PaidToday)
	assert.Equal(t, 1, stats.RetrievedToday)

	empty := CalculateStats(nil, today)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.TotalAmount.IsZero())
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(" To_Retrieve ")
	require.NoError(t, err)
	assert.Equal(t, FilterToRetrieve, f)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("shipped")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

type recordingNotifier struct {
	calls   []bool
	refs    []string
	succeed bool
}

func (n *recordingNotifier) SendOrderConfirmation(data Data, isUpdate bool) bool {
	n.calls = append(n.calls, isUpdate)
	n.refs = append(n.refs, data.Reference)
	return n.succeed
}

func newTestService(t *testing.T, notifier Notifier) (*Service, *ledger.Store) {
	t.Helper()
	store := ledger.NewStore(ledger.DefaultPaths(t.TempDir()), ledger.Options{
		USBFolder: "USB",
		Now:       func() time.Time { return fixedNow },
	})
	prices := pricing.New([]pricing.Activity{
		{Key: "Gala", DisplayName: "Gala de danse", UnitPrice: decimal.RequireFromString("2")},
		{Key: "USB", DisplayName: "Cle USB", UnitPrice: decimal.RequireFromString("15")},
	})
	svc := NewService(store, prices, WithNotifier(notifier), WithClock(func() time.Time { return fixedNow }))
	return svc, store
}

func submission(ref string, items ...ItemRequest) Submission {
	return Submission{
		Reference: ref,
		Customer: Customer{
			Lastname:  "Martin",
			Firstname: "Claire",
			Email:     "claire@example.org",
			Phone:     "0600000000",
		},
		Items: items,
	}
}

func TestValidateOrderComputesSubtotals(t *testing.T) {
	notifier := &recordingNotifier{succeed: true}
	svc, store := newTestService(t, notifier)

	result := svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "gala", Photo: "IMG_001.jpg", Quantity: 1},
		ItemRequest{Activity: "Gala", Photo: "IMG_002.jpg", Quantity: 2},
	))
	require.True(t, result.Success, result.Message)
	assert.False(t, result.IsUpdate)
	assert.True(t, result.Notified)
	assert.Equal(t, []bool{false}, notifier.calls)

	assert.Equal(t, 3, result.Data.TotalPhotos)
	assert.Equal(t, "6.00", record.FormatAmount(result.Data.TotalPrice))

	rows, err := store.FindRowsByReference("CMD001")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Gala", rows[0].Get(record.FieldActivityKey))
	assert.Equal(t, "2.00", rows[0].Get(record.FieldLineAmount))
	assert.Equal(t, "4.00", rows[1].Get(record.FieldLineAmount))
	assert.Equal(t, "2026-03-14 10:00:00", rows[0].Get(record.FieldCreatedAt))
	assert.Equal(t, record.StatusValidated, rows[0].Status())
}

func TestValidateOrderReplacesUnpaidOrder(t *testing.T) {
	notifier := &recordingNotifier{succeed: true}
	svc, store := newTestService(t, notifier)

	require.True(t, svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "Gala", Photo: "IMG_001.jpg", Quantity: 1},
		ItemRequest{Activity: "Gala", Photo: "IMG_002.jpg", Quantity: 2},
	)).Success)

	result := svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "USB", Photo: "Cle USB", Quantity: 1},
	))
	require.True(t, result.Success, result.Message)
	assert.True(t, result.IsUpdate)
	assert.Equal(t, []bool{false, true}, notifier.calls)

	rows, err := store.FindRowsByReference("CMD001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "15.00", rows[0].Get(record.FieldLineAmount))
}

func TestValidateOrderRejectsPaidOrder(t *testing.T) {
	svc, _ := newTestService(t, nil)
	require.True(t, svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "Gala", Photo: "IMG_001.jpg", Quantity: 1},
	)).Success)
	require.True(t, svc.RecordPayment(ledger.PaymentRequest{Reference: "CMD001", Mode: "Especes", Date: "2026-03-14"}).Success)

	result := svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "Gala", Photo: "IMG_009.jpg", Quantity: 1},
	))
	assert.False(t, result.Success)
	assert.Equal(t, ledger.ReasonInvalidTransition, result.Reason)
}

func TestValidateOrderValidationFailures(t *testing.T) {
	svc, store := newTestService(t, nil)

	tests := []struct {
		name string
		sub  Submission
	}{
		{"unknown activity", submission("CMD001", ItemRequest{Activity: "Concert", Photo: "a.jpg", Quantity: 1})},
		{"zero quantity", submission("CMD001", ItemRequest{Activity: "Gala", Photo: "a.jpg", Quantity: 0})},
		{"missing photo", submission("CMD001", ItemRequest{Activity: "Gala", Quantity: 1})},
		{"no items", submission("CMD001")},
		{"no contact", Submission{Reference: "CMD001", Customer: Customer{Lastname: "Martin"}, Items: []ItemRequest{{Activity: "Gala", Photo: "a.jpg", Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.ValidateOrder(tt.sub)
			assert.False(t, result.Success)
			assert.Equal(t, ledger.ReasonValidation, result.Reason)
		})
	}

	_, err := store.ReadAll()
	assert.ErrorIs(t, err, ledger.ErrEmptyLedger)
}

func TestValidateOrderGeneratesReference(t *testing.T) {
	svc, _ := newTestService(t, nil)
	result := svc.ValidateOrder(submission("", ItemRequest{Activity: "Gala", Photo: "a.jpg", Quantity: 1}))
	require.True(t, result.Success)
	assert.Regexp(t, regexp.MustCompile(`^CMD20260314100000[0-9A-F]{4}$`), result.Reference)
}

func TestNotifierFailureIsNotPropagated(t *testing.T) {
	notifier := &recordingNotifier{succeed: false}
	svc, _ := newTestService(t, notifier)

	result := svc.ValidateOrder(submission("CMD001", ItemRequest{Activity: "Gala", Photo: "a.jpg", Quantity: 1}))
	assert.True(t, result.Success)
	assert.False(t, result.Notified)

	paid := svc.RecordPayment(ledger.PaymentRequest{Reference: "CMD001", Mode: "Especes", Date: "2026-03-14"})
	assert.True(t, paid.Success)
	assert.Len(t, notifier.calls, 2)
}

func TestOrderAggregateLifecycle(t *testing.T) {
	svc, store := newTestService(t, nil)
	require.True(t, svc.ValidateOrder(submission("CMD001",
		ItemRequest{Activity: "Gala", Photo: "IMG_001.jpg", Quantity: 1},
		ItemRequest{Activity: "Gala", Photo: "IMG_002.jpg", Quantity: 2},
	)).Success)

	o, err := Load(store, "CMD001")
	require.NoError(t, err)
	assert.Equal(t, record.StatusValidated, o.Status())

	result := o.UpdatePaymentStatus("Especes", "2024-01-10", "", "")
	require.True(t, result.Success, result.Message)
	data := o.GetData()
	assert.Equal(t, record.StatusPaid, data.Status)
	assert.True(t, data.Exported)
	assert.Equal(t, "2024-01-10", data.PaymentDate)
	require.Len(t, data.Items, 2)
	assert.Equal(t, "4.00", record.FormatAmount(data.Items[1].Subtotal))

	again := o.UpdatePaymentStatus("Especes", "2024-01-10", "", "")
	assert.Equal(t, ledger.ReasonAlreadyApplied, again.Reason)

	exported := o.MarkAsExported()
	assert.Equal(t, ledger.ReasonAlreadyApplied, exported.Reason)

	retrieved := o.UpdateRetrievalStatus(fixedNow.Add(2 * time.Hour))
	require.True(t, retrieved.Success)
	assert.Equal(t, record.StatusRetrieved, o.Status())
	assert.Equal(t, "2026-03-14 12:00:00", o.GetData().RetrievalDate)

	_, err = Load(store, "CMD404")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAccessors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	require.True(t, svc.ValidateOrder(submission("CMD001", ItemRequest{Activity: "Gala", Photo: "a.jpg", Quantity: 1})).Success)

	contact, err := svc.GetOrderContact("CMD001")
	require.NoError(t, err)
	assert.Equal(t, "Claire Martin", contact.FullName())

	data, err := svc.GetOrderDataByReference("CMD001")
	require.NoError(t, err)
	assert.Equal(t, 1, data.TotalPhotos)

	_, err = svc.GetOrderContact("CMD404")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	retrieval := svc.RecordRetrieval("CMD001", time.Time{})
	assert.Equal(t, ledger.ReasonInvalidTransition, retrieval.Reason)
}

// =============================================================================
// Photo Sale Ledger - Order Service
// =============================================================================
//
// The Service is the entry point used by the CLI (and any future UI) to:
//   - Validate a new or resubmitted order into ledger rows
//   - Record payments and retrievals through the Order aggregate
//   - Expose contact and order data to rendering layers
//
// NOTIFICATIONS:
//   A Notifier is called after a successful validation or payment. Its
//   failure is logged at warn level and never turns a ledger success into a
//   failure.
//
// =============================================================================

package order

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/logging"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Notifier sends order confirmations to the customer.
type Notifier interface {
	// SendOrderConfirmation returns false when the message could not be sent.
	SendOrderConfirmation(data Data, isUpdate bool) bool
}

// LogNotifier records confirmations in the log instead of sending them.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendOrderConfirmation logs the confirmation and reports success.
func (n LogNotifier) SendOrderConfirmation(data Data, isUpdate bool) bool {
	logging.OrDiscard(n.Logger).Info("order confirmation",
		"reference", data.Reference,
		"email", data.Customer.Email,
		"status", string(data.Status),
		"total", record.FormatAmount(data.TotalPrice),
		"update", isUpdate)
	return true
}

// =============================================================================
// SERVICE
// =============================================================================

// Service validates orders and drives their lifecycle.
type Service struct {
	repo     ledger.Repository
	prices   *pricing.Table
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the confirmation notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.OrDiscard(l) }
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over the repository and pricing table.
func NewService(repo ledger.Repository, prices *pricing.Table, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		prices: prices,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// VALIDATION
// =============================================================================

// ItemRequest is one requested line item.
type ItemRequest struct {
	Activity string
	Photo    string
	Quantity int
}

// Submission is an order as entered by the customer or the operator.
type Submission struct {
	// Reference is optional. A new one is generated when empty.
	Reference string
	Customer  Customer
	Items     []ItemRequest
}

// ValidationResult is the outcome of ValidateOrder.
type ValidationResult struct {
	ledger.Result

	// IsUpdate is true when the submission replaced an existing order.
	IsUpdate bool

	// Data is the validated order.
	Data Data

	// Notified reports whether the confirmation was sent.
	Notified bool
}

// ValidateOrder turns a submission into VALIDATED ledger rows.
//
// BEHAVIOR:
//   - Unknown activity, empty photo, quantity < 1 or no contact: validation failure
//   - Reference absent from the ledger: rows appended
//   - Reference still VALIDATED: old rows replaced in one rewrite
//   - Reference PAID or later: rejected with invalid_transition
func (s *Service) ValidateOrder(sub Submission) ValidationResult {
	ref := strings.TrimSpace(sub.Reference)
	if ref == "" {
		ref = NewReference(s.now())
	}

	rows, err := s.buildRows(ref, sub)
	if err != nil {
		return ValidationResult{Result: failedResult(ref, err)}
	}

	removed, err := s.repo.ReplaceOrder(ref, rows)
	if err != nil {
		s.logger.Error("order validation failed", "reference", ref, "error", err)
		return ValidationResult{Result: failedResult(ref, err)}
	}

	result := ValidationResult{
		Result: ledger.Result{
			Success:      true,
			Reference:    ref,
			RowsAffected: len(rows),
		},
		IsUpdate: removed > 0,
		Data:     FromRows(s.repo, rows).GetData(),
	}
	if result.IsUpdate {
		result.Message = fmt.Sprintf("order %s updated (%d line item(s))", ref, len(rows))
	} else {
		result.Message = fmt.Sprintf("order %s validated (%d line item(s))", ref, len(rows))
	}
	s.logger.Info(result.Message, "operation", "validate_order", "reference", ref, "update", result.IsUpdate)

	result.Notified = s.notify(result.Data, result.IsUpdate)
	return result
}

// buildRows prices every item of the submission.
func (s *Service) buildRows(ref string, sub Submission) ([]record.Row, error) {
	if strings.TrimSpace(sub.Customer.Lastname) == "" && strings.TrimSpace(sub.Customer.Firstname) == "" {
		return nil, fmt.Errorf("%w: customer name is required", ledger.ErrValidation)
	}
	if strings.TrimSpace(sub.Customer.Email) == "" && strings.TrimSpace(sub.Customer.Phone) == "" {
		return nil, fmt.Errorf("%w: an email or phone number is required", ledger.ErrValidation)
	}
	if len(sub.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ledger.ErrValidation)
	}
	if s.prices == nil {
		return nil, fmt.Errorf("%w: no pricing table configured", ledger.ErrValidation)
	}

	createdAt := s.now().Format(record.DateTimeLayout)
	rows := make([]record.Row, 0, len(sub.Items))
	for i, item := range sub.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d: quantity must be at least 1", ledger.ErrValidation, i+1)
		}
		if strings.TrimSpace(item.Photo) == "" {
			return nil, fmt.Errorf("%w: item %d: photo is required", ledger.ErrValidation, i+1)
		}
		activity, err := s.prices.Lookup(item.Activity)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ledger.ErrValidation, i+1, err)
		}

		row := record.NewRow()
		row.Set(record.FieldReference, ref)
		row.Set(record.FieldLastname, strings.TrimSpace(sub.Customer.Lastname))
		row.Set(record.FieldFirstname, strings.TrimSpace(sub.Customer.Firstname))
		row.Set(record.FieldEmail, strings.TrimSpace(sub.Customer.Email))
		row.Set(record.FieldPhone, strings.TrimSpace(sub.Customer.Phone))
		row.Set(record.FieldCreatedAt, createdAt)
		row.Set(record.FieldActivityKey, activity.Key)
		row.Set(record.FieldPhotoName, strings.TrimSpace(item.Photo))
		row.Set(record.FieldQuantity, strconv.Itoa(item.Quantity))
		row.Set(record.FieldLineAmount, record.FormatAmount(record.Subtotal(item.Quantity, activity.UnitPrice)))
		row.Set(record.FieldCommandStatus, string(record.StatusValidated))
		rows = append(rows, row)
	}
	return rows, nil
}

// NewReference returns "CMD" + YYYYMMDDHHMMSS + 4 random hex characters.
func NewReference(now time.Time) string {
	return "CMD" + now.Format("20060102150405") + strings.ToUpper(uuid.NewString()[:4])
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// RecordPayment marks a VALIDATED order as PAID and sends a confirmation
// when the payment was newly applied.
func (s *Service) RecordPayment(request ledger.PaymentRequest) ledger.Result {
	o, err := Load(s.repo, strings.TrimSpace(request.Reference))
	if err != nil {
		return failedResult(request.Reference, err)
	}

	result := o.UpdatePaymentStatus(request.Mode, request.Date, request.DesiredDepositDate, request.ActualDepositDate)
	if result.Success && result.Reason != ledger.ReasonAlreadyApplied {
		s.notify(o.GetData(), true)
	}
	return result
}

// RecordRetrieval marks a PAID order as RETRIEVED at the given time.
func (s *Service) RecordRetrieval(ref string, at time.Time) ledger.Result {
	o, err := Load(s.repo, strings.TrimSpace(ref))
	if err != nil {
		return failedResult(ref, err)
	}
	return o.UpdateRetrievalStatus(at)
}

// notify calls the notifier and logs its failure.
func (s *Service) notify(data Data, isUpdate bool) bool {
	if s.notifier == nil {
		return false
	}
	if !s.notifier.SendOrderConfirmation(data, isUpdate) {
		s.logger.Warn("order confirmation not sent", "reference", data.Reference, "email", data.Customer.Email)
		return false
	}
	return true
}

// =============================================================================
// ACCESSORS
// =============================================================================

// GetOrderContact returns the customer of ref.
func (s *Service) GetOrderContact(ref string) (Customer, error) {
	o, err := Load(s.repo, strings.TrimSpace(ref))
	if err != nil {
		return Customer{}, err
	}
	return o.GetData().Customer, nil
}

// GetOrderDataByReference returns the normalized view of ref.
func (s *Service) GetOrderDataByReference(ref string) (Data, error) {
	o, err := Load(s.repo, strings.TrimSpace(ref))
	if err != nil {
		return Data{}, err
	}
	return o.GetData(), nil
}

// failedResult builds a failed ledger.Result from an error.
func failedResult(ref string, err error) ledger.Result {
	reason := ledger.ReasonOf(err)
	if errors.Is(err, pricing.ErrUnknownActivity) {
		reason = ledger.ReasonValidation
	}
	return ledger.Result{
		Success:   false,
		Message:   err.Error(),
		Reason:    reason,
		Err:       err,
		Reference: ref,
	}
}

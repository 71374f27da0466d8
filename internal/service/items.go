package service

import (
	"context"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var itemTracer = otel.Tracer("service/items")

// ItemService manages expenses and recurring payments, the two record kinds
// a ledger transaction can reference.
type ItemService struct {
	store  port.ItemStore
	logger *zap.Logger
	// now is swappable for tests of the future-date rule.
	now func() time.Time
}

// NewItemService creates the item service.
func NewItemService(store port.ItemStore, logger *zap.Logger) *ItemService {
	return &ItemService{store: store, logger: logger, now: time.Now}
}

// ExpenseDraft is the input for expense creation.
type ExpenseDraft struct {
	AccountID         string
	Planned           bool
	Narration         string
	Amount            int64
	TransactionCharge int64
	Tags              []domain.UsageTag
	DateOccurred      string
}

// CreateExpense validates and persists a one-off expense. DateOccurred must
// be a real calendar date no later than today.
func (s *ItemService) CreateExpense(ctx context.Context, draft *ExpenseDraft) (*domain.Expense, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.CreateExpense")
	defer span.End()

	occurred, err := time.Parse("2006-01-02", draft.DateOccurred)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date_occurred", Message: "use the format YYYY-MM-DD"}
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if occurred.After(today) {
		return nil, &domain.ErrValidation{Field: "date_occurred", Message: "Date of expense cannot be in the future"}
	}
	if draft.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}
	if draft.TransactionCharge < 0 {
		return nil, &domain.ErrValidation{Field: "transaction_charge", Message: "transaction charge cannot be negative"}
	}

	expense := &domain.Expense{
		ID:                uuid.New().String(),
		AccountID:         draft.AccountID,
		Planned:           draft.Planned,
		Narration:         draft.Narration,
		Amount:            draft.Amount,
		TransactionCharge: draft.TransactionCharge,
		Tags:              draft.Tags,
		DateOccurred:      draft.DateOccurred,
		DateCreated:       s.now().UTC(),
	}

	created, err := s.store.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense created",
		zap.String("expense_id", created.ID),
		zap.String("account_id", created.AccountID),
		zap.Int64("total_cost", created.TotalCost()),
	)
	return created, nil
}

// GetExpense returns one expense.
func (s *ItemService) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.GetExpense")
	defer span.End()
	return s.store.GetExpense(ctx, expenseID)
}

// ListExpenses returns an account's expenses.
func (s *ItemService) ListExpenses(ctx context.Context, accountID string) ([]domain.Expense, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.ListExpenses")
	defer span.End()
	return s.store.ListExpenses(ctx, accountID)
}

// DeleteExpense removes an expense. Transactions referencing it keep their
// bare (kind, id) pair; the reference is weak.
func (s *ItemService) DeleteExpense(ctx context.Context, expenseID string) error {
	ctx, span := itemTracer.Start(ctx, "ItemService.DeleteExpense")
	defer span.End()
	return s.store.DeleteExpense(ctx, expenseID)
}

// PaymentDraft is the input for recurring payment creation.
type PaymentDraft struct {
	UserID            string
	Narration         string
	Amount            int64
	TransactionCharge int64
	Tags              []domain.UsageTag
	StartDate         string
	EndDate           *string
	RenewalDate       string
}

// CreatePayment validates and persists a recurring payment. RenewalDate is
// "DD" for monthly renewal or "MM-DD" for annual.
func (s *ItemService) CreatePayment(ctx context.Context, draft *PaymentDraft) (*domain.RecurringPayment, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.CreatePayment")
	defer span.End()

	if err := domain.ValidateRenewalDate(draft.RenewalDate); err != nil {
		return nil, err
	}
	if draft.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}
	if _, err := time.Parse("2006-01-02", draft.StartDate); err != nil {
		return nil, &domain.ErrValidation{Field: "start_date", Message: "use the format YYYY-MM-DD"}
	}
	if draft.EndDate != nil {
		end, err := time.Parse("2006-01-02", *draft.EndDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "end_date", Message: "use the format YYYY-MM-DD"}
		}
		start, _ := time.Parse("2006-01-02", draft.StartDate)
		if end.Before(start) {
			return nil, &domain.ErrValidation{Field: "end_date", Message: "end date cannot precede start date"}
		}
	}

	now := s.now().UTC()
	payment := &domain.RecurringPayment{
		ID:                uuid.New().String(),
		UserID:            draft.UserID,
		Narration:         draft.Narration,
		Amount:            draft.Amount,
		TransactionCharge: draft.TransactionCharge,
		Tags:              draft.Tags,
		StartDate:         draft.StartDate,
		EndDate:           draft.EndDate,
		RenewalDate:       draft.RenewalDate,
		RenewalCount:      0,
		DateAdded:         now,
		DateModified:      now,
	}

	created, err := s.store.CreatePayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recurring payment created",
		zap.String("payment_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("renewal_date", created.RenewalDate),
	)
	return created, nil
}

// GetPayment returns one recurring payment.
func (s *ItemService) GetPayment(ctx context.Context, paymentID string) (*domain.RecurringPayment, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.GetPayment")
	defer span.End()
	return s.store.GetPayment(ctx, paymentID)
}

// ListPayments returns a user's recurring payments.
func (s *ItemService) ListPayments(ctx context.Context, userID string) ([]domain.RecurringPayment, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.ListPayments")
	defer span.End()
	return s.store.ListPayments(ctx, userID)
}

// DeletePayment removes a recurring payment.
func (s *ItemService) DeletePayment(ctx context.Context, paymentID string) error {
	ctx, span := itemTracer.Start(ctx, "ItemService.DeletePayment")
	defer span.End()
	return s.store.DeletePayment(ctx, paymentID)
}

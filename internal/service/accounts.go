package service

import (
	"context"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/accounts")

// AccountService manages account lifecycle. Balances are read-only here:
// the only writer is the ledger.
type AccountService struct {
	store  port.AccountStore
	logger *zap.Logger
}

// NewAccountService creates the account service.
func NewAccountService(store port.AccountStore, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, logger: logger}
}

// AccountDraft is the input for account creation.
type AccountDraft struct {
	UserID          string
	AccountType     string
	AccountNumber   string
	AccountProvider string
}

// Create registers a new account. New accounts start with a zero balance and
// inactive; activation is an explicit patch after the owner verifies the
// details.
func (s *AccountService) Create(ctx context.Context, draft *AccountDraft) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", draft.UserID))

	existing, err := s.store.ListAccounts(ctx, draft.UserID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].AccountNumber == draft.AccountNumber && existing[i].AccountProvider == draft.AccountProvider {
			return nil, &domain.ErrConflict{Message: "account with this number and provider already exists"}
		}
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:              uuid.New().String(),
		UserID:          draft.UserID,
		AccountType:     draft.AccountType,
		AccountNumber:   draft.AccountNumber,
		AccountProvider: draft.AccountProvider,
		Balance:         0,
		Active:          false,
		DateAdded:       now,
		DateModified:    now,
	}

	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("account_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("provider", created.AccountProvider),
	)
	return created, nil
}

// Get returns a single account.
func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Get")
	defer span.End()
	return s.store.GetAccount(ctx, accountID)
}

// List returns all accounts owned by a user.
func (s *AccountService) List(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.List")
	defer span.End()
	return s.store.ListAccounts(ctx, userID)
}

// Patch applies a partial update. Balance and last_balance_update are not
// patchable; the patch type cannot express them.
func (s *AccountService) Patch(ctx context.Context, accountID string, patch *domain.AccountPatch) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Patch")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if patch.Empty() {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	updated, err := s.store.PatchAccount(ctx, accountID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account updated",
		zap.String("account_id", updated.ID),
		zap.Bool("active", updated.Active),
	)
	return updated, nil
}

// Package service provides the business logic layer (use cases).
// LedgerService owns the transaction ledger: validated creation, atomic
// balance application, and compensating deletes.
package service

import (
	"context"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/infra/observability"
	"github.com/tyne-finance/ledger-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService orchestrates the transaction ledger. The ledger is
// append-only: a transaction is created once, applied to its account's
// balance once, and either persists forever or is deleted with an exact
// reversal. Updates do not exist.
type LedgerService struct {
	store     port.Store
	validator *TransactionValidator
	resolver  port.ItemResolver
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLedgerService creates the ledger service.
func NewLedgerService(store port.Store, resolver port.ItemResolver, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		validator: NewTransactionValidator(resolver),
		resolver:  resolver,
		metrics:   metrics,
		logger:    logger,
	}
}

// CommittedTransaction is a transaction plus its denormalized item
// projection for read responses. The embedding is a serialization concern;
// the ledger row stores only the (kind, id) pair.
type CommittedTransaction struct {
	domain.Transaction
	ResolvedItem *domain.Item `json:"resolved_item,omitempty"`
}

// Create validates the draft and commits it to the ledger. The transaction
// row write and the balance delta are one atomic unit in the store; a
// failure anywhere leaves both untouched. Errors are never retried here;
// retrying a balance mutation risks double-application.
func (s *LedgerService) Create(ctx context.Context, draft *domain.TransactionDraft) (*CommittedTransaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", draft.AccountID),
		attribute.String("transaction.type", string(draft.Type)),
		attribute.Int64("transaction.amount", draft.Amount),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("transaction_create", time.Since(start)) }()

	account, err := s.store.GetAccount(ctx, draft.AccountID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, account, draft); err != nil {
		s.metrics.IncrTransaction(string(draft.Type), "rejected")
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      draft.Type,
		AccountID: draft.AccountID,
		Amount:    draft.Amount,
		Item:      draft.ItemRef(),
		Automatic: draft.Automatic,
		CreatedAt: time.Now().UTC(),
	}

	committed, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		s.metrics.IncrStoreError("append_transaction")
		s.logger.Error("failed to commit transaction",
			zap.String("account_id", draft.AccountID),
			zap.String("type", string(draft.Type)),
			zap.Int64("amount", draft.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrTransaction(string(committed.Type), "committed")
	s.metrics.RecordBalanceDelta(committed.Delta())

	s.logger.Info("transaction committed",
		zap.String("transaction_id", committed.ID),
		zap.String("account_id", committed.AccountID),
		zap.String("type", string(committed.Type)),
		zap.Int64("amount", committed.Amount),
		zap.Bool("automatic", committed.Automatic),
	)

	return s.embedItem(ctx, committed), nil
}

// Delete reverses a committed transaction: the inverse delta is applied to
// the account and the row is removed, both in one atomic unit.
func (s *LedgerService) Delete(ctx context.Context, transactionID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("transaction_delete", time.Since(start)) }()

	removed, err := s.store.RemoveTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	s.metrics.IncrTransaction(string(removed.Type), "reversed")
	s.metrics.RecordBalanceDelta(removed.ReversalDelta())

	s.logger.Info("transaction reversed",
		zap.String("transaction_id", removed.ID),
		zap.String("account_id", removed.AccountID),
		zap.String("type", string(removed.Type)),
		zap.Int64("amount", removed.Amount),
	)
	return nil
}

// Update always fails: the ledger has no update transition. The only
// correction mechanism is a compensating delete.
func (s *LedgerService) Update(ctx context.Context, transactionID string) error {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Update")
	defer span.End()

	s.logger.Warn("rejected attempt to update committed transaction",
		zap.String("transaction_id", transactionID),
	)
	return domain.ErrImmutableTransaction()
}

// Get returns a committed transaction with its item projection embedded.
func (s *LedgerService) Get(ctx context.Context, transactionID string) (*CommittedTransaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Get")
	defer span.End()

	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return s.embedItem(ctx, tx), nil
}

// List returns an account's transactions, newest first.
func (s *LedgerService) List(ctx context.Context, accountID string, page, pageSize int) ([]CommittedTransaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.List")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	rows, err := s.store.ListTransactions(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, err
	}

	out := make([]CommittedTransaction, 0, len(rows))
	for i := range rows {
		out = append(out, *s.embedItem(ctx, &rows[i]))
	}
	return out, nil
}

// embedItem attaches the resolved item projection for reads. Resolution
// failures downgrade to a bare reference rather than failing the read: the
// item may have been deleted after the transaction, and the relation is a
// weak lookup, not ownership.
func (s *LedgerService) embedItem(ctx context.Context, tx *domain.Transaction) *CommittedTransaction {
	out := &CommittedTransaction{Transaction: *tx}
	if tx.Item == nil {
		return out
	}
	item, err := s.resolver.Resolve(ctx, tx.Item.Kind, tx.Item.ID)
	if err != nil {
		s.logger.Debug("item projection unavailable",
			zap.String("transaction_id", tx.ID),
			zap.String("item_kind", string(tx.Item.Kind)),
			zap.String("item_id", tx.Item.ID),
			zap.Error(err),
		)
		return out
	}
	out.ResolvedItem = item
	return out
}

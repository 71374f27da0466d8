package service

import (
	"context"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var summaryTracer = otel.Tracer("service/summary")

const recentTransactionLimit = 20

// AccountSummary aggregates the account head, its recent ledger activity,
// and running totals for GET /v1/accounts/{id}/summary.
type AccountSummary struct {
	Account      *domain.Account      `json:"account"`
	Recent       []domain.Transaction `json:"recent_transactions"`
	TotalDebits  int64                `json:"total_debits"`
	TotalCredits int64                `json:"total_credits"`
	Count        int                  `json:"transaction_count"`
}

// SummaryService builds account summaries.
type SummaryService struct {
	store  port.Store
	logger *zap.Logger
}

// NewSummaryService creates the summary service.
func NewSummaryService(store port.Store, logger *zap.Logger) *SummaryService {
	return &SummaryService{store: store, logger: logger}
}

// Summarize fetches the account and its ledger history concurrently and
// folds the history into totals. The recent slice is capped; the totals
// cover everything.
func (s *SummaryService) Summarize(ctx context.Context, accountID string) (*AccountSummary, error) {
	ctx, span := summaryTracer.Start(ctx, "SummaryService.Summarize")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var (
		account *domain.Account
		history []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.store.GetAccount(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.store.ListTransactions(gctx, accountID, 1, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &AccountSummary{
		Account: account,
		Count:   len(history),
	}
	for i := range history {
		switch history[i].Type {
		case domain.Debit:
			summary.TotalDebits += history[i].Amount
		case domain.Credit:
			summary.TotalCredits += history[i].Amount
		}
	}

	if len(history) > recentTransactionLimit {
		history = history[:recentTransactionLimit]
	}
	summary.Recent = history

	return summary, nil
}

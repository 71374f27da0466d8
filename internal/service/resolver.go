package service

import (
	"context"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/port"
)

// StoreResolver resolves item references against the local item store. Used
// when the service owns its items; deployments that source items from a
// separate service use the remote client instead.
type StoreResolver struct {
	items port.ItemStore
}

// NewStoreResolver creates a resolver backed by the local item store.
func NewStoreResolver(items port.ItemStore) *StoreResolver {
	return &StoreResolver{items: items}
}

// Resolve looks up the (kind, id) pair in the item store.
func (r *StoreResolver) Resolve(ctx context.Context, kind domain.ItemKind, id string) (*domain.Item, error) {
	switch kind {
	case domain.ItemExpense:
		e, err := r.items.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		return &domain.Item{Kind: domain.ItemExpense, Expense: e}, nil
	case domain.ItemPayment:
		p, err := r.items.GetPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		return &domain.Item{Kind: domain.ItemPayment, Payment: p}, nil
	default:
		return nil, &domain.ErrValidation{Field: "item_kind", Message: "unknown item kind"}
	}
}

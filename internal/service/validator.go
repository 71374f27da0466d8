package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/port"

	"go.opentelemetry.io/otel"
)

var validatorTracer = otel.Tracer("service/validator")

// TransactionValidator enforces every pre-condition before a transaction may
// enter the ledger. Checks run in a fixed order and the first failure is
// surfaced alone; the outer request-validation layer may still combine its
// own independent field errors with the one returned here.
type TransactionValidator struct {
	resolver port.ItemResolver
}

// NewTransactionValidator creates a validator using the given item resolver.
func NewTransactionValidator(resolver port.ItemResolver) *TransactionValidator {
	return &TransactionValidator{resolver: resolver}
}

// Validate runs the ordered pre-condition checks:
//
//  1. the account must be active
//  2. a credit must not reference an item
//  3. item kind and id must be both present or both absent
//  4. a referenced item must exist
func (v *TransactionValidator) Validate(ctx context.Context, account *domain.Account, draft *domain.TransactionDraft) error {
	ctx, span := validatorTracer.Start(ctx, "TransactionValidator.Validate")
	defer span.End()

	if !account.Active {
		return &domain.ErrValidation{Field: "account", Message: "account not active"}
	}

	if draft.Type == domain.Credit && (draft.ItemKind != nil || draft.ItemID != nil) {
		return &domain.ErrValidation{Field: "transaction_type", Message: "credit transactions cannot reference an item"}
	}

	if draft.ItemKind != nil && draft.ItemID == nil {
		return &domain.ErrValidation{Field: "item_id", Message: "item id required"}
	}
	if draft.ItemID != nil && draft.ItemKind == nil {
		return &domain.ErrValidation{Field: "item_kind", Message: "item kind required"}
	}

	if draft.ItemKind != nil && draft.ItemID != nil {
		if _, err := v.resolver.Resolve(ctx, *draft.ItemKind, *draft.ItemID); err != nil {
			var notFound *domain.ErrNotFound
			if errors.As(err, &notFound) {
				return &domain.ErrValidation{
					Field:   "item_id",
					Message: fmt.Sprintf("item with id %s does not exist", *draft.ItemID),
				}
			}
			return err
		}
	}

	return nil
}

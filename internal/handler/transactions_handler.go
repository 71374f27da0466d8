package handler

import (
	"net/http"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ledger transactions
// ============================================================

type createTransactionRequest struct {
	AccountID       string  `json:"account_id" validate:"required"`
	TransactionType string  `json:"transaction_type" validate:"required,oneof=DB CD"`
	Amount          int64   `json:"amount" validate:"required,gt=0"`
	ItemKind        *string `json:"item_kind,omitempty" validate:"omitempty,oneof=EX RP"`
	ItemID          *string `json:"item_id,omitempty"`
	Automatic       bool    `json:"automatic,omitempty"`
}

func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req createTransactionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		span.SetAttributes(
			attribute.String("account.id", req.AccountID),
			attribute.String("transaction.type", req.TransactionType),
		)

		draft := &domain.TransactionDraft{
			AccountID: req.AccountID,
			Type:      domain.TransactionType(req.TransactionType),
			Amount:    req.Amount,
			ItemID:    req.ItemID,
			Automatic: req.Automatic,
		}
		if req.ItemKind != nil {
			kind := domain.ItemKind(*req.ItemKind)
			draft.ItemKind = &kind
		}

		tx, err := svc.Create(ctx, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, tx)
	}
}

func getTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{transactionId}")
		defer span.End()

		transactionID := chi.URLParam(r, "transactionId")
		tx, err := svc.Get(ctx, transactionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		page, pageSize := parsePagination(r)

		transactions, err := svc.List(ctx, accountID, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
	}
}

func deleteTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		transactionID := chi.URLParam(r, "transactionId")
		if err := svc.Delete(ctx, transactionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// updateTransactionHandler rejects every PUT/PATCH. Committed transactions
// never change; the route exists so the refusal is explicit rather than a
// generic 405.
func updateTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		transactionID := chi.URLParam(r, "transactionId")
		if err := svc.Update(ctx, transactionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
	}
}

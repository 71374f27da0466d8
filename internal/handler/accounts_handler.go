package handler

import (
	"net/http"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Accounts
// ============================================================

type createAccountRequest struct {
	AccountType     string `json:"account_type" validate:"required"`
	AccountNumber   string `json:"account_number" validate:"required"`
	AccountProvider string `json:"account_provider" validate:"required"`
}

func createAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts")
		defer span.End()

		var req createAccountRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		account, err := svc.Create(ctx, &service.AccountDraft{
			UserID:          UserIDFromContext(ctx),
			AccountType:     req.AccountType,
			AccountNumber:   req.AccountNumber,
			AccountProvider: req.AccountProvider,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

func listAccountsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.List(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}

func getAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		account, err := svc.Get(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func patchAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")

		var patch domain.AccountPatch
		if !decodeAndValidate(w, r, &patch) {
			return
		}

		account, err := svc.Patch(ctx, accountID, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func accountSummaryHandler(svc *service.SummaryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/summary")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		summary, err := svc.Summarize(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

package handler

import (
	"net/http"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Expenses
// ============================================================

type createExpenseRequest struct {
	AccountID         string            `json:"account_id" validate:"required"`
	Planned           bool              `json:"planned,omitempty"`
	Narration         string            `json:"narration" validate:"required"`
	Amount            int64             `json:"amount" validate:"required,gt=0"`
	TransactionCharge int64             `json:"transaction_charge,omitempty" validate:"gte=0"`
	Tags              []domain.UsageTag `json:"tags,omitempty"`
	DateOccurred      string            `json:"date_occurred" validate:"required"`
}

func createExpenseHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		var req createExpenseRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		expense, err := svc.CreateExpense(ctx, &service.ExpenseDraft{
			AccountID:         req.AccountID,
			Planned:           req.Planned,
			Narration:         req.Narration,
			Amount:            req.Amount,
			TransactionCharge: req.TransactionCharge,
			Tags:              req.Tags,
			DateOccurred:      req.DateOccurred,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, expense)
	}
}

func getExpenseHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses/{expenseId}")
		defer span.End()

		expense, err := svc.GetExpense(ctx, chi.URLParam(r, "expenseId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	}
}

func listExpensesHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/expenses")
		defer span.End()

		expenses, err := svc.ListExpenses(ctx, chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
	}
}

func deleteExpenseHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/expenses/{expenseId}")
		defer span.End()

		if err := svc.DeleteExpense(ctx, chi.URLParam(r, "expenseId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Recurring payments
// ============================================================

type createPaymentRequest struct {
	Narration         string            `json:"narration" validate:"required"`
	Amount            int64             `json:"amount" validate:"required,gt=0"`
	TransactionCharge int64             `json:"transaction_charge,omitempty" validate:"gte=0"`
	Tags              []domain.UsageTag `json:"tags,omitempty"`
	StartDate         string            `json:"start_date" validate:"required"`
	EndDate           *string           `json:"end_date,omitempty"`
	RenewalDate       string            `json:"renewal_date" validate:"required"`
}

func createPaymentHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments")
		defer span.End()

		var req createPaymentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		payment, err := svc.CreatePayment(ctx, &service.PaymentDraft{
			UserID:            UserIDFromContext(ctx),
			Narration:         req.Narration,
			Amount:            req.Amount,
			TransactionCharge: req.TransactionCharge,
			Tags:              req.Tags,
			StartDate:         req.StartDate,
			EndDate:           req.EndDate,
			RenewalDate:       req.RenewalDate,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, payment)
	}
}

func getPaymentHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/{paymentId}")
		defer span.End()

		payment, err := svc.GetPayment(ctx, chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, payment)
	}
}

func listPaymentsHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments")
		defer span.End()

		payments, err := svc.ListPayments(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
	}
}

func deletePaymentHandler(svc *service.ItemService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/payments/{paymentId}")
		defer span.End()

		if err := svc.DeletePayment(ctx, chi.URLParam(r, "paymentId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

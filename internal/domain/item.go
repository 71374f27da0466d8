package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ============================================================
// Ledger items: expenses and recurring payments
// ============================================================

// UsageTag labels expenses and payments (e.g. Rent/RNT).
type UsageTag struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// Expense is a one-off cost. Amount and TransactionCharge are integer minor
// units; the effective cost is their sum.
type Expense struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	Planned           bool       `json:"planned"`
	Narration         string     `json:"narration"`
	Amount            int64      `json:"amount"`
	TransactionCharge int64      `json:"transaction_charge"`
	Tags              []UsageTag `json:"tags"`
	DateOccurred      string     `json:"date_occurred"` // YYYY-MM-DD, never in the future
	DateCreated       time.Time  `json:"date_created"`
}

// TotalCost is amount plus charge.
func (e *Expense) TotalCost() int64 {
	return e.Amount + e.TransactionCharge
}

// RecurringPayment is a repeating cost (subscription, rent).
// RenewalDate is "DD" for monthly renewal or "MM-DD" for annual.
type RecurringPayment struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Narration         string     `json:"narration"`
	Amount            int64      `json:"amount"`
	TransactionCharge int64      `json:"transaction_charge"`
	Tags              []UsageTag `json:"tags"`
	StartDate         string     `json:"start_date"`
	EndDate           *string    `json:"end_date"`
	RenewalDate       string     `json:"renewal_date"`
	RenewalCount      int        `json:"renewal_count"`
	DateAdded         time.Time  `json:"date_added"`
	DateModified      time.Time  `json:"date_modified"`
}

// IsAnnual reports whether the payment renews yearly (MM-DD) rather than
// monthly (DD).
func (p *RecurringPayment) IsAnnual() bool {
	return strings.Contains(p.RenewalDate, "-")
}

// TotalCost is amount plus charge.
func (p *RecurringPayment) TotalCost() int64 {
	return p.Amount + p.TransactionCharge
}

// Item is the resolved target of a transaction's (kind, id) reference.
// Exactly one of Expense/Payment is set, matching Kind.
type Item struct {
	Kind    ItemKind          `json:"kind"`
	Expense *Expense          `json:"expense,omitempty"`
	Payment *RecurringPayment `json:"payment,omitempty"`
}

// ValidateRenewalDate checks a renewal date string: two digits (01..31) for
// monthly renewal, or month-day ("12-31") for annual. The annual form must
// name a real calendar date.
func ValidateRenewalDate(value string) error {
	if strings.Contains(value, "-") {
		if len(value) != 5 {
			return &ErrValidation{Field: "renewal_date", Message: "use the correct format for annual renewal"}
		}
		parts := strings.SplitN(value, "-", 2)
		month, err := strconv.Atoi(parts[0])
		if err != nil {
			return &ErrValidation{Field: "renewal_date", Message: "use appropriate numbers"}
		}
		day, err := strconv.Atoi(parts[1])
		if err != nil {
			return &ErrValidation{Field: "renewal_date", Message: "use appropriate numbers"}
		}
		if month > 12 {
			return &ErrValidation{Field: "renewal_date", Message: "months should not exceed 12"}
		}
		if day > 31 {
			return &ErrValidation{Field: "renewal_date", Message: "dates should not exceed 31"}
		}
		// Reject combinations like 02-30.
		if _, err := time.Parse("2006-1-2", fmt.Sprintf("1970-%d-%d", month, day)); err != nil {
			return &ErrValidation{Field: "renewal_date", Message: "use a valid date"}
		}
		return nil
	}

	day, err := strconv.Atoi(value)
	if err != nil {
		return &ErrValidation{Field: "renewal_date", Message: "use appropriate numbers"}
	}
	if day > 31 {
		return &ErrValidation{Field: "renewal_date", Message: "dates should not exceed 31"}
	}
	return nil
}

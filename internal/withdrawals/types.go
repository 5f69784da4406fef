package withdrawals

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propnest/propnest-client/pkg/enums"
	"github.com/propnest/propnest-client/pkg/pagination"
)

// Info summarizes the owner's withdrawable balance.
type Info struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	MinimumAmount    decimal.Decimal `json:"minimum_amount"`
	Currency         string          `json:"currency"`
}

// Withdrawal is one payout request.
type Withdrawal struct {
	ID          int64                  `json:"id"`
	Amount      decimal.Decimal        `json:"amount"`
	Status      enums.WithdrawalStatus `json:"status"`
	Method      string                 `json:"method,omitempty"`
	Note        string                 `json:"note,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
}

// HistoryQuery pages through past withdrawals.
type HistoryQuery struct {
	Status  enums.WithdrawalStatus `json:"status" validate:"omitempty,oneof=pending approved rejected completed"`
	Page    int                    `json:"page" validate:"gte=0"`
	PerPage int                    `json:"per_page" validate:"gte=0,lte=100"`
}

// Values encodes the query string for the history endpoint.
func (q HistoryQuery) Values() url.Values {
	p := pagination.Params{Page: q.Page, PerPage: q.PerPage}.Normalize()
	v := url.Values{
		"page":     {strconv.Itoa(p.Page)},
		"per_page": {strconv.Itoa(p.PerPage)},
	}
	if q.Status != "" {
		v.Set("status", q.Status.String())
	}
	return v
}

// Request is the payload of a new withdrawal.
type Request struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty" validate:"omitempty,oneof=bank_transfer paypal"`
	Note   string          `json:"note,omitempty" validate:"max=500"`
}

package withdrawals

import (
	"context"
	"fmt"

	"github.com/propnest/propnest-client/internal/listing"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/validators"
)

type API interface {
	WithdrawalInfo(ctx context.Context) (*Info, error)
	WithdrawalHistory(ctx context.Context, q HistoryQuery) (*listing.Page[Withdrawal], error)
	RequestWithdrawal(ctx context.Context, req Request) (*Withdrawal, error)
}

// NewHistoryLoader returns a loader for the withdrawal history table.
func NewHistoryLoader(api API, opts ...listing.Option) *listing.Loader[HistoryQuery, Withdrawal] {
	opts = append([]listing.Option{listing.WithResource("withdrawals")}, opts...)
	return listing.New(func(ctx context.Context, q HistoryQuery) (*listing.Page[Withdrawal], error) {
		return api.WithdrawalHistory(ctx, q)
	}, opts...)
}

// Service checks withdrawal requests against the current balance before
// sending them.
type Service struct {
	api  API
	logg *logger.Logger
}

// NewService builds a withdrawal service.
func NewService(api API, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawals api is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: api, logg: logg}, nil
}

// Info loads the current balance.
func (s *Service) Info(ctx context.Context) (*Info, error) {
	return s.api.WithdrawalInfo(ctx)
}

// Request validates req against a fresh balance and submits it.
func (s *Service) Request(ctx context.Context, req Request) (*Withdrawal, error) {
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0.")
	}

	info, err := s.api.WithdrawalInfo(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req, info); err != nil {
		return nil, err
	}

	out, err := s.api.RequestWithdrawal(ctx, req)
	if err != nil {
		if !pkgerrors.IsCanceled(err) {
			s.logg.Error(s.logg.WithField(ctx, "amount", req.Amount.String()), "withdrawals.request_failed", err)
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"withdrawal_id": out.ID, "amount": out.Amount.String()}), "withdrawals.requested")
	return out, nil
}

func checkAmount(req Request, info *Info) error {
	if info == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "withdrawal info unavailable")
	}
	if info.MinimumAmount.IsPositive() && req.Amount.LessThan(info.MinimumAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount must be at least %s.", info.MinimumAmount.StringFixed(2))).
			WithDetails(map[string]string{"amount": "below minimum"})
	}
	if req.Amount.GreaterThan(info.AvailableBalance) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount must not exceed the available balance of %s.", info.AvailableBalance.StringFixed(2))).
			WithDetails(map[string]string{"amount": "exceeds balance"})
	}
	return nil
}

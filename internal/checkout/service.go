package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgcheckout "github.com/propnest/propnest-client/pkg/checkout"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/validators"
)

// PurchaseInput captures what the booking form collects.
type PurchaseInput struct {
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	MaxGuests int
	Note      string
}

// PurchaseRequest is the wire payload of POST /properties/{id}/purchase.
type PurchaseRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
	Note     string `json:"note,omitempty"`
}

// Booking is the backend's answer to a purchase.
type Booking struct {
	ID         int64           `json:"id"`
	PropertyID int64           `json:"property_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	CheckIn    string          `json:"check_in"`
	CheckOut   string          `json:"check_out"`
}

// CheckoutRequest completes payment for a booking.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card paypal bank_transfer"`
	Reference     string `json:"reference,omitempty" validate:"max=120"`
}

// Receipt confirms a completed checkout.
type Receipt struct {
	BookingID int64           `json:"booking_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// API is the slice of the backend checkout uses. The idempotency key must be
// sent unchanged on every retry of the same call.
type API interface {
	PurchaseProperty(ctx context.Context, propertyID int64, req PurchaseRequest, idempotencyKey string) (*Booking, error)
	CompleteCheckout(ctx context.Context, bookingID int64, req CheckoutRequest, idempotencyKey string) (*Receipt, error)
}

// Option customizes the Service.
type Option func(*Service)

// WithKeyFunc overrides idempotency key generation.
func WithKeyFunc(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

// WithClock overrides the time source used to reject past check-in dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service validates booking requests locally and submits them with an
// idempotency key.
type Service struct {
	api    API
	logg   *logger.Logger
	newKey func() string
	now    func() time.Time
}

// NewService builds the checkout service.
func NewService(api API, logg *logger.Logger, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout api is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Service{api: api, logg: logg, newKey: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Purchase books propertyID. One idempotency key covers the call and every
// retry the backend client makes for it.
func (s *Service) Purchase(ctx context.Context, propertyID int64, in PurchaseInput) (*Booking, error) {
	if propertyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property id is required")
	}
	if err := pkgcheckout.ValidateStay(pkgcheckout.StayInput{
		CheckIn:   in.CheckIn,
		CheckOut:  in.CheckOut,
		Guests:    in.Guests,
		MaxGuests: in.MaxGuests,
	}, s.now()); err != nil {
		return nil, err
	}

	key := s.newKey()
	req := PurchaseRequest{
		CheckIn:  pkgcheckout.FormatDate(in.CheckIn),
		CheckOut: pkgcheckout.FormatDate(in.CheckOut),
		Guests:   in.Guests,
		Note:     strings.TrimSpace(in.Note),
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"property_id": propertyID, "idempotency_key": key})
	booking, err := s.api.PurchaseProperty(ctx, propertyID, req, key)
	if err != nil {
		s.logFailure(logCtx, "checkout.purchase_failed", err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(logCtx, "booking_id", booking.ID), "checkout.purchased")
	return booking, nil
}

// Checkout pays for a booking created by Purchase.
func (s *Service) Checkout(ctx context.Context, bookingID int64, req CheckoutRequest) (*Receipt, error) {
	if bookingID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	key := s.newKey()
	logCtx := s.logg.WithFields(ctx, map[string]any{"booking_id": bookingID, "idempotency_key": key})
	receipt, err := s.api.CompleteCheckout(ctx, bookingID, req, key)
	if err != nil {
		s.logFailure(logCtx, "checkout.checkout_failed", err)
		return nil, err
	}
	s.logg.Info(logCtx, "checkout.completed")
	return receipt, nil
}

func (s *Service) logFailure(ctx context.Context, msg string, err error) {
	if pkgerrors.IsCanceled(err) {
		s.logg.Debug(ctx, msg)
		return
	}
	s.logg.Error(ctx, msg, err)
}

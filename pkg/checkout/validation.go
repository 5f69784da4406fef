package checkout

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

const dateLayout = "2006-01-02"

// StayInput describes the dates and party size of a booking request.
type StayInput struct {
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	MaxGuests int
}

// StayViolation is one rule a stay request broke.
type StayViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateStay checks the stay against today's date (in the check-in's
// location) and the property's guest limit. MaxGuests <= 0 means no limit.
func ValidateStay(in StayInput, now time.Time) error {
	var violations []StayViolation
	today := truncateDay(now.In(locationOf(in.CheckIn)))
	if in.CheckIn.IsZero() {
		violations = append(violations, StayViolation{Field: "check_in", Message: "check_in is required."})
	} else if truncateDay(in.CheckIn).Before(today) {
		violations = append(violations, StayViolation{Field: "check_in", Message: "check_in must not be in the past."})
	}
	if in.CheckOut.IsZero() {
		violations = append(violations, StayViolation{Field: "check_out", Message: "check_out is required."})
	} else if !in.CheckIn.IsZero() && Nights(in.CheckIn, in.CheckOut) < 1 {
		violations = append(violations, StayViolation{Field: "check_out", Message: "check_out must be after check_in."})
	}
	if in.Guests < 1 {
		violations = append(violations, StayViolation{Field: "guests", Message: "guests must be at least 1."})
	} else if in.MaxGuests > 0 && in.Guests > in.MaxGuests {
		violations = append(violations, StayViolation{Field: "guests", Message: fmt.Sprintf("guests must be at most %d.", in.MaxGuests)})
	}
	if len(violations) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(violations))
	for _, v := range violations {
		fields[v.Field] = append(fields[v.Field], v.Message)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, pkgerrors.FlattenFieldErrors(fields)).WithDetails(map[string]any{
		"violations": violations,
	})
}

// Nights counts calendar nights between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int {
	in := truncateDay(checkIn)
	out := truncateDay(checkOut.In(locationOf(checkIn)))
	return int(out.Sub(in).Hours()+12) / 24
}

// Total is the nightly price times the number of nights.
func Total(nightly decimal.Decimal, nights int) decimal.Decimal {
	if nights <= 0 {
		return decimal.Zero
	}
	return nightly.Mul(decimal.NewFromInt(int64(nights)))
}

// FormatDate renders a date the way the booking endpoints expect.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid date %q", value))
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func locationOf(t time.Time) *time.Location {
	if t.IsZero() {
		return time.UTC
	}
	return t.Location()
}

package enums

import "fmt"

// ToastKind classifies a transient alert.
type ToastKind string

const (
	ToastKindNotification ToastKind = "notification"
	ToastKindLoginPrompt  ToastKind = "login_prompt"
	ToastKindError        ToastKind = "error"
	ToastKindSuccess      ToastKind = "success"
)

var validToastKinds = []ToastKind{
	ToastKindNotification,
	ToastKindLoginPrompt,
	ToastKindError,
	ToastKindSuccess,
}

// String implements fmt.Stringer.
func (k ToastKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ToastKind.
func (k ToastKind) IsValid() bool {
	for _, candidate := range validToastKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseToastKind converts raw input into a ToastKind.
func ParseToastKind(value string) (ToastKind, error) {
	for _, candidate := range validToastKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid toast kind %q", value)
}

package enums

import "fmt"

// NotificationShape tags how a realtime payload carried its notification record.
type NotificationShape string

const (
	// NotificationShapeNested means the record sat under a "data" object.
	NotificationShapeNested NotificationShape = "nested"
	// NotificationShapeFlat means the whole payload was the record.
	NotificationShapeFlat NotificationShape = "flat"
)

var validNotificationShapes = []NotificationShape{
	NotificationShapeNested,
	NotificationShapeFlat,
}

func (n NotificationShape) String() string {
	return string(n)
}

// IsValid checks whether the given shape matches a known variant.
func (n NotificationShape) IsValid() bool {
	for _, candidate := range validNotificationShapes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationShape converts raw strings into NotificationShape.
func ParseNotificationShape(value string) (NotificationShape, error) {
	for _, candidate := range validNotificationShapes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification shape %q", value)
}

package notifications

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

// Record is one notification as rendered by the client.
// Only IsRead ever changes after a record is received, and only from false to true.
type Record struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type,omitempty"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	PropertyID *int64    `json:"property_id,omitempty"`
	// ReceivedAt is stamped locally when the record arrives over the realtime channel.
	ReceivedAt time.Time `json:"-"`
}

// Page is one page of the remote notification list.
type Page struct {
	Items       []Record
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02 15:04:05",
}

type wireRecord struct {
	ID         json.RawMessage `json:"id"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	IsRead     json.RawMessage `json:"is_read"`
	ReadAt     *string         `json:"read_at"`
	CreatedAt  string          `json:"created_at"`
	PropertyID json.RawMessage `json:"property_id"`
}

// UnmarshalJSON accepts the variations the backend emits: numeric or string ids,
// 0/1 booleans, read_at instead of is_read and Laravel's timestamp layout.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := parseInt(wire.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id")
	}
	out := Record{
		ID:      id,
		Type:    wire.Type,
		Title:   wire.Title,
		Message: wire.Message,
		IsRead:  parseBool(wire.IsRead) || (wire.ReadAt != nil && *wire.ReadAt != ""),
	}
	if wire.CreatedAt != "" {
		out.CreatedAt, err = parseTimestamp(wire.CreatedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification created_at")
		}
	}
	if len(wire.PropertyID) > 0 && !isNull(wire.PropertyID) {
		propertyID, err := parseInt(wire.PropertyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification property_id")
		}
		out.PropertyID = &propertyID
	}
	*r = out
	return nil
}

// DecodeRealtime normalizes a realtime payload into a Record. Two shapes are
// accepted: the record nested under a "data" object, or the payload itself as
// the record. Outer id, type and created_at fill gaps in the nested variant.
// Anything that is not a JSON object, or carries no id, is rejected.
func DecodeRealtime(payload []byte) (Record, enums.NotificationShape, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, "", pkgerrors.New(pkgerrors.CodeValidation, "realtime payload is not an object")
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return Record{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode realtime payload")
	}

	shape := enums.NotificationShapeFlat
	body := trimmed
	if nested, ok := outer["data"]; ok {
		inner := bytes.TrimSpace(nested)
		if len(inner) > 0 && inner[0] == '{' {
			shape = enums.NotificationShapeNested
			body = inner
		}
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode realtime notification")
	}
	if shape == enums.NotificationShapeNested {
		var top Record
		if err := json.Unmarshal(trimmed, &top); err == nil {
			if rec.ID == 0 {
				rec.ID = top.ID
			}
			if rec.Type == "" {
				rec.Type = top.Type
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = top.CreatedAt
			}
		}
	}
	if rec.ID == 0 {
		return Record{}, "", pkgerrors.New(pkgerrors.CodeValidation, "realtime notification missing id")
	}
	return rec, shape, nil
}

func parseInt(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || isNull(raw) {
		return 0, nil
	}
	text := strings.Trim(string(raw), `"`)
	if text == "" {
		return 0, nil
	}
	return strconv.ParseInt(text, 10, 64)
}

func parseBool(raw json.RawMessage) bool {
	switch strings.Trim(string(raw), `"`) {
	case "true", "1":
		return true
	default:
		return false
	}
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

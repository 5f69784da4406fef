package backend

import (
	"bytes"
	"encoding/json"

	"github.com/propnest/propnest-client/internal/listing"
	"github.com/propnest/propnest-client/pkg/pagination"
)

// paginated is Laravel's paginator envelope. API resources move the counters
// under "meta"; both layouts are accepted.
type paginated[T any] struct {
	Data        []T              `json:"data"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	PerPage     int              `json:"per_page"`
	Total       int              `json:"total"`
	Meta        *pagination.Meta `json:"meta"`
}

func (p paginated[T]) meta() pagination.Meta {
	if p.Meta != nil && (p.Meta.Total > 0 || p.Meta.LastPage > 0) {
		return *p.Meta
	}
	return pagination.Meta{
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
	}
}

func (p paginated[T]) page() *listing.Page[T] {
	items := p.Data
	if items == nil {
		items = []T{}
	}
	return &listing.Page[T]{Items: items, Meta: p.meta()}
}

// single unwraps {"data": {...}} when present and otherwise decodes the body
// as the object itself.
type single[T any] struct {
	Value T
}

func (s *single[T]) UnmarshalJSON(raw []byte) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		trimmed := bytes.TrimSpace(wrapped.Data)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return json.Unmarshal(trimmed, &s.Value)
		}
	}
	return json.Unmarshal(raw, &s.Value)
}

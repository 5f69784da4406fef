package pagination

const (
	// DefaultPerPage is the page size used when a query does not provide one.
	DefaultPerPage = 12
	// MaxPerPage caps how many rows any list request can ask for.
	MaxPerPage = 100
)

// Params holds page-based pagination inputs shared by every list query.
type Params struct {
	Page    int `json:"page" validate:"gte=0"`
	PerPage int `json:"per_page" validate:"gte=0,lte=100"`
}

// Normalize returns params with defaults applied and limits enforced.
func (p Params) Normalize() Params {
	return Params{
		Page:    NormalizePage(p.Page),
		PerPage: NormalizePerPage(p.PerPage),
	}
}

// NormalizePage clamps page numbers to 1-based values.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// NormalizePerPage enforces the configured default and maximum page sizes.
func NormalizePerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// Meta mirrors the pagination fields returned by the backend's paginated envelope.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Window is the pagination view consumed by list screens, including the
// 1-based display range for "showing X-Y of Z" text.
type Window struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	StartIndex  int `json:"start_index"`
	EndIndex    int `json:"end_index"`
}

// NewWindow derives the display window for a page.
func NewWindow(meta Meta) Window {
	perPage := NormalizePerPage(meta.PerPage)
	page := NormalizePage(meta.CurrentPage)
	total := meta.Total
	if total < 0 {
		total = 0
	}

	totalPages := meta.LastPage
	if totalPages <= 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	w := Window{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		PerPage:     perPage,
	}
	if total == 0 {
		return w
	}

	w.StartIndex = (page-1)*perPage + 1
	w.EndIndex = page * perPage
	if w.EndIndex > total {
		w.EndIndex = total
	}
	if w.StartIndex > total {
		w.StartIndex, w.EndIndex = 0, 0
	}
	return w
}

// HasNext reports whether another page exists after the current one.
func (w Window) HasNext() bool {
	return w.CurrentPage < w.TotalPages
}

// HasPrev reports whether a page exists before the current one.
func (w Window) HasPrev() bool {
	return w.CurrentPage > 1
}

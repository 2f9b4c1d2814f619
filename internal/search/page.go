package search

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is the 1-based pagination query accepted by list endpoints.
type Page struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps out-of-range values to the defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Skip() int  { return (p.Page - 1) * p.PageSize }
func (p Page) Limit() int { return p.PageSize }

// Pages is ceil(total/pageSize).
func Pages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

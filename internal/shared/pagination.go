package shared

// ListFilters carries common list query parameters.
type ListFilters struct {
	Status  string
	Search  string
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}

// Normalize clamps paging values to sane defaults.
func (f *ListFilters) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

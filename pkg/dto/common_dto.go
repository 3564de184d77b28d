package dto

// Pagination is the shared page envelope returned by list endpoints.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// MaterialFilter binds list query params for material browsing.
type MaterialFilter struct {
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
	Search       string `form:"search"`
	Subject      string `form:"subject"`
	MaterialType string `form:"type"`
	Year         string `form:"year"`
	SortBy       string `form:"sort"` // "recent" (default), "popular", "top_rated"
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

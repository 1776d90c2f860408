// Package pagination implements the offset/limit query contract shared by
// every list endpoint.
package pagination

import "github.com/balkarbucket/backend/internal/models"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize clamps raw page/limit query values into a usable range.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset converts a page/limit pair into a SQL offset.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// Data builds the pagination envelope for a result page.
// totalPages = ceil(total/limit).
func Data(total, page, limit int) models.Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

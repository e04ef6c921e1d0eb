package pagination

import "gorm.io/gorm"

type Pagination struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// Normalize clamps the page to >= 1 and the limit to [1, max], using def when unset.
func (p Pagination) Normalize(def, max int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Apply adds LIMIT/OFFSET to the statement.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	if p.Limit <= 0 {
		return stmt
	}
	return stmt.Limit(p.Limit).Offset(p.Offset())
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	info := PageInfo{Page: p.Page, Limit: p.Limit, Total: total}
	if p.Limit > 0 {
		info.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	info.HasMore = int64(p.Offset()+p.Limit) < total
	return info
}

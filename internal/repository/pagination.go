package repository

import "math"

const DefaultPage = 1

// PageRequest addresses a 1-based page of a fixed size.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// InRange reports whether the page exists for the given total page count.
func (p PageRequest) InRange(totalPages int) bool {
	return p.Page >= 1 && p.Page <= totalPages
}

func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

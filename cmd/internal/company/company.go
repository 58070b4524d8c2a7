// Package company stores company records and serves the paged /sys/company endpoints.
package company

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("company not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("company store unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Company is a row of sys_company.
type Company struct {
	ID        int64
	Name      string
	Contact   string
	Phone     string
	CreatedAt time.Time
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageQuery selects one page of companies. Name filters by case-insensitive substring.
type PageQuery struct {
	Page  int
	Limit int
	Name  string
}

// Normalize applies defaults and bounds.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// offset is only meaningful once QueryPage has checked Page against the total.
func (q PageQuery) offset() int { return (q.Page - 1) * q.Limit }

// Page is one page of results plus totals.
type Page struct {
	TotalCount int64
	PageSize   int
	TotalPage  int
	CurrPage   int
	List       []Company
}

func newPage(q PageQuery, total int64, list []Company) Page {
	if list == nil {
		list = []Company{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return Page{
		TotalCount: total,
		PageSize:   q.Limit,
		TotalPage:  pages,
		CurrPage:   q.Page,
		List:       list,
	}
}

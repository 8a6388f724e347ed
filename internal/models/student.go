package models

import (
	"math"
	"strings"
)

// Student is a learner record kept by the registry.
type Student struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	Email            string `db:"email" json:"email"`
	RegistrationDate Date   `db:"registration_date" json:"registration_date"`
}

// Page sizing rules for paginated listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort directions accepted by PageRequest.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortFields maps accepted sort keys to their column names.
var sortFields = map[string]string{
	"id":                "id",
	"name":              "name",
	"email":             "email",
	"registration_date": "registration_date",
	"registrationDate":  "registration_date",
}

// PageRequest addresses a zero-based page of students.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize clamps out-of-range values to their defaults and resolves SortBy
// to a column name, falling back to id for unknown fields.
// Page is capped so that Offset never overflows.
func (p PageRequest) Normalize() PageRequest {
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Page < 0 {
		p.Page = 0
	}
	if maxPage := math.MaxInt / p.Size; p.Page > maxPage {
		p.Page = maxPage
	}
	column, ok := sortFields[p.SortBy]
	if !ok {
		column = "id"
	}
	p.SortBy = column
	p.SortDir = strings.ToLower(p.SortDir)
	if p.SortDir != SortDesc {
		p.SortDir = SortAsc
	}
	return p
}

// Offset returns the number of rows preceding the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page metadata for total matching rows.
func NewPagination(req PageRequest, total int) Pagination {
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return Pagination{Page: req.Page, PageSize: req.Size, TotalCount: total, TotalPages: pages}
}

// StudentPage is a bounded slice of students plus paging metadata.
type StudentPage struct {
	Content []Student `json:"content"`
	Pagination
}

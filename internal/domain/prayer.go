// Package domain contains core business types and interfaces.
//
// This file defines duas and the user-curated lists that collect them.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// List title constraints.
const (
	MaxListTitleLength       = 120
	MaxListDescriptionLength = 1000
)

// Visibility controls whether a list appears in the public feed.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// IsValid reports whether v is a known visibility.
func (v Visibility) IsValid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// PrayerList is an ordered collection of duas owned by a user.
type PrayerList struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	OwnerName   string     `json:"ownerName"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	DuaIDs      []string   `json:"duaIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateListParams contains parameters for creating a list.
type CreateListParams struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Visibility  Visibility
}

// Validate normalizes and checks the parameters.
func (p *CreateListParams) Validate() error {
	const op = "list.create"

	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	if p.Visibility == "" {
		p.Visibility = VisibilityPrivate
	}

	ve := &ValidationError{Op: op}
	if p.Title == "" {
		ve.Add("title", "Title is required")
	} else if len([]rune(p.Title)) > MaxListTitleLength {
		ve.Add("title", "Title is too long")
	}
	if len([]rune(p.Description)) > MaxListDescriptionLength {
		ve.Add("description", "Description is too long")
	}
	if !p.Visibility.IsValid() {
		ve.Add("visibility", "Visibility must be private or public")
	}
	return ve.OrNil()
}

// FeedParams selects a page of the public list feed.
type FeedParams struct {
	Query   string
	Page    int
	PerPage int
}

// Feed paging bounds.
const (
	DefaultFeedPerPage = 20
	MaxFeedPerPage     = 50
	// MaxFeedPage keeps Offset well inside an int32 SQL parameter.
	MaxFeedPage = 1000
)

// Normalize applies paging defaults and bounds.
func (p *FeedParams) Normalize() {
	p.Query = strings.TrimSpace(p.Query)
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxFeedPage {
		p.Page = MaxFeedPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultFeedPerPage
	}
	if p.PerPage > MaxFeedPerPage {
		p.PerPage = MaxFeedPerPage
	}
}

// Offset returns the row offset for the current page.
func (p FeedParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination describes a page of results.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	PerPage     int  `json:"perPage"`
	Total       int  `json:"total"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

// NewPagination computes page information for total results.
func NewPagination(page, perPage, total int) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		PerPage:     perPage,
		Total:       total,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

// ListFeed is one page of public lists.
type ListFeed struct {
	Lists      []PrayerList `json:"lists"`
	Pagination Pagination   `json:"pagination"`
}

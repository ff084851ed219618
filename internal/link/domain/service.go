package domain

import (
	"context"
	"errors"
	"time"

	"github.com/linkpulse/linkpulse/pkg/db/pagination"
)

type CreateLinkRequest struct {
	ShortCode      string         `json:"short_code"`
	DestinationURL string         `json:"destination_url"`
	Title          string         `json:"title"`
	Category       string         `json:"category"`
	Platform       string         `json:"platform"`
	CommissionRate *float64       `json:"commission_rate"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	Metadata       map[string]any `json:"metadata"`
}

// UpdateLinkRequest carries patch semantics: nil fields are untouched.
type UpdateLinkRequest struct {
	ID             string
	ShortCode      *string        `json:"short_code"`
	DestinationURL *string        `json:"destination_url"`
	Title          *string        `json:"title"`
	Category       *string        `json:"category"`
	Platform       *string        `json:"platform"`
	CommissionRate *float64       `json:"commission_rate"`
	IsActive       *bool          `json:"is_active"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	Metadata       map[string]any `json:"metadata"`
}

type ListLinkRequest struct {
	PageToken string
	PageSize  int
	Category  string
	Platform  string
	// Active filters on the lifecycle flag. When nil, retired links are
	// hidden; pass an explicit false to list them.
	Active *bool
}

type ListLinkFilter struct {
	Category string
	Platform string
	Active   *bool
}

type ListLinkResponse struct {
	pagination.PageInfo
	Links []Link `json:"links"`
}

type Service interface {
	Create(context.Context, CreateLinkRequest) (Link, error)
	GetByID(ctx context.Context, id string) (Link, error)
	List(context.Context, ListLinkRequest) (ListLinkResponse, error)
	Update(context.Context, UpdateLinkRequest) (Link, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound           = errors.New("link_not_found")
	ErrCodeTaken          = errors.New("short_code_taken")
	ErrInvalidID          = errors.New("invalid_link_id")
	ErrInvalidShortCode   = errors.New("invalid_short_code")
	ErrInvalidDestination = errors.New("invalid_destination_url")
)

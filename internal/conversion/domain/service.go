// Package domain defines the conversion attribution surface.
package domain

import "context"

// RecordConversionRequest attributes a confirmed conversion to a link,
// optionally pinning it to the click that caused it. Webhooks deliver
// these asynchronously, so the click reference may be stale.
type RecordConversionRequest struct {
	LinkID  string   `json:"link_id"`
	ClickID *string  `json:"click_id,omitempty"`
	Value   *float64 `json:"conversion_value,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req RecordConversionRequest) error
}

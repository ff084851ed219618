package domain

import (
	"context"
	"errors"
)

// Service resolves short codes into destinations and captures the
// analytics trail as a side effect.
type Service interface {
	// Resolve returns the destination URL for an active short code.
	// Capture work (click row, counters, daily rollup, live event)
	// runs detached so the redirect never waits on analytics.
	Resolve(ctx context.Context, shortCode string, reqCtx RequestContext) (string, error)

	// Drain blocks until all in-flight capture work has finished.
	Drain()
}

var (
	// ErrLinkGone marks a code that once resolved but is retired or
	// past its expiry. Kept distinct from not-found so operators can
	// tell "never existed" from "existed then lapsed".
	ErrLinkGone = errors.New("link_gone")
)

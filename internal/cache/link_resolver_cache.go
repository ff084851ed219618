package cache

import (
	"time"

	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
)

const defaultLinkTTL = 30 * time.Second

// LinkResolverCache stores hot-path short code lookups for the redirect
// handler. Entries are short-lived and invalidated on every link write,
// so a deactivation takes effect no later than the next request.
type LinkResolverCache interface {
	GetByCode(shortCode string) (*linkdomain.Link, bool)
	SetByCode(shortCode string, link *linkdomain.Link)
	Invalidate(shortCode string)
}

type linkResolverCache struct {
	links Cache[string, *linkdomain.Link]
	ttl   time.Duration
}

// NewLinkResolverCache returns an in-memory cache tuned for redirects.
func NewLinkResolverCache() LinkResolverCache {
	return &linkResolverCache{
		links: NewTTLCache[string, *linkdomain.Link](),
		ttl:   defaultLinkTTL,
	}
}

func (c *linkResolverCache) GetByCode(shortCode string) (*linkdomain.Link, bool) {
	return c.links.Get(shortCode)
}

func (c *linkResolverCache) SetByCode(shortCode string, link *linkdomain.Link) {
	if link == nil {
		return
	}
	c.links.Set(shortCode, link, c.ttl)
}

func (c *linkResolverCache) Invalidate(shortCode string) {
	if shortCode == "" {
		return
	}
	c.links.Delete(shortCode)
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
)

func TestLinkResolverCacheRoundTrip(t *testing.T) {
	c := NewLinkResolverCache()

	_, ok := c.GetByCode("demo")
	assert.False(t, ok)

	c.SetByCode("demo", &linkdomain.Link{ShortCode: "demo", DestinationURL: "https://example.com"})

	got, ok := c.GetByCode("demo")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", got.DestinationURL)

	c.Invalidate("demo")
	_, ok = c.GetByCode("demo")
	assert.False(t, ok)
}

func TestLinkResolverCacheIgnoresNil(t *testing.T) {
	c := NewLinkResolverCache()
	c.SetByCode("demo", nil)

	_, ok := c.GetByCode("demo")
	assert.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("k", 42, 10*time.Millisecond)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

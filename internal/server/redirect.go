package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clickdomain "github.com/linkpulse/linkpulse/internal/click/domain"
)

// Redirect answers GET /go/:code. Destination availability outranks
// analytics completeness, so the handler only waits for the lookup.
func (s *Server) Redirect(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	c.Set("short_code", code)

	destination, err := s.clickSvc.Resolve(c.Request.Context(), code, clickdomain.RequestContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		Country:   resolveCountry(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, destination)
}

// resolveCountry trusts the edge proxy's geo header when present.
func resolveCountry(c *gin.Context) string {
	if country := strings.TrimSpace(c.GetHeader("CF-IPCountry")); country != "" {
		return country
	}
	return strings.TrimSpace(c.GetHeader("X-Country"))
}

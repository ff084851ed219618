package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/linkpulse/linkpulse/internal/conversion/domain"
	"github.com/linkpulse/linkpulse/internal/ratelimit"
)

type recordConversionRequest struct {
	LinkID          string   `json:"link_id"`
	ClickID         *string  `json:"click_id"`
	ConversionValue *float64 `json:"conversion_value"`
}

func (s *Server) RecordConversion(c *gin.Context) {
	if s.limiter.Enabled() {
		result, err := s.limiter.AllowSource(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis being down must not drop real conversions.
			result = &ratelimit.Result{Allowed: true}
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(result.RetryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many conversion requests",
				},
			})
			return
		}
	}

	var req recordConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.LinkID) == "" {
		AbortWithError(c, newValidationError("link_id", "invalid_link_id", "link_id is required"))
		return
	}

	err := s.conversionSvc.Record(c.Request.Context(), conversiondomain.RecordConversionRequest{
		LinkID:  strings.TrimSpace(req.LinkID),
		ClickID: req.ClickID,
		Value:   req.ConversionValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"recorded": true}})
}

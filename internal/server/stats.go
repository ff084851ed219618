package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	statsdomain "github.com/linkpulse/linkpulse/internal/stats/domain"
)

func (s *Server) StatsSummary(c *gin.Context) {
	var linkID *string
	if raw := strings.TrimSpace(c.Query("link_id")); raw != "" {
		linkID = &raw
	}

	resp, err := s.statsSvc.Summary(c.Request.Context(), statsdomain.SummaryRequest{
		Timeframe: strings.TrimSpace(c.DefaultQuery("timeframe", "all")),
		LinkID:    linkID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StatsTopLinks(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	resp, err := s.statsSvc.TopLinks(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StatsTimeline(c *gin.Context) {
	resp, err := s.statsSvc.Timeline(c.Request.Context(), strings.TrimSpace(c.DefaultQuery("period", "30d")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StatsDeviceBreakdown(c *gin.Context) {
	resp, err := s.statsSvc.DeviceBreakdown(c.Request.Context(), strings.TrimSpace(c.DefaultQuery("period", "30d")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StatsCategoryPerformance(c *gin.Context) {
	resp, err := s.statsSvc.CategoryPerformance(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	linkdomain "github.com/linkpulse/linkpulse/internal/link/domain"
	"github.com/linkpulse/linkpulse/pkg/db/pagination"
)

type createLinkRequest struct {
	ShortCode      string         `json:"short_code"`
	DestinationURL string         `json:"destination_url"`
	Title          string         `json:"title"`
	Category       string         `json:"category"`
	Platform       string         `json:"platform"`
	CommissionRate *float64       `json:"commission_rate"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	Metadata       map[string]any `json:"metadata"`
}

func (s *Server) CreateLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.Create(c.Request.Context(), linkdomain.CreateLinkRequest{
		ShortCode:      strings.TrimSpace(req.ShortCode),
		DestinationURL: strings.TrimSpace(req.DestinationURL),
		Title:          strings.TrimSpace(req.Title),
		Category:       strings.TrimSpace(req.Category),
		Platform:       strings.TrimSpace(req.Platform),
		CommissionRate: req.CommissionRate,
		ExpiresAt:      req.ExpiresAt,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListLinks(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Category string `form:"category"`
		Platform string `form:"platform"`
		Active   string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.linkSvc.List(c.Request.Context(), linkdomain.ListLinkRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Category:  strings.TrimSpace(query.Category),
		Platform:  strings.TrimSpace(query.Platform),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLink(c *gin.Context) {
	resp, err := s.linkSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLinkRequest struct {
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

func (s *Server) UpdateLink(c *gin.Context) {
	var req updateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.Update(c.Request.Context(), linkdomain.UpdateLinkRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		ShortCode:      req.ShortCode,
		DestinationURL: req.DestinationURL,
		Title:          req.Title,
		Category:       req.Category,
		Platform:       req.Platform,
		CommissionRate: req.CommissionRate,
		IsActive:       req.IsActive,
		ExpiresAt:      req.ExpiresAt,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteLink(c *gin.Context) {
	if err := s.linkSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

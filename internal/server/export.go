package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	statsdomain "github.com/linkpulse/linkpulse/internal/stats/domain"
)

func (s *Server) Export(c *gin.Context) {
	exportType := strings.TrimSpace(c.Query("type"))

	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	filename := fmt.Sprintf("linkpulse_%s_%s.csv", exportType, time.Now().UTC().Format(dateOnlyLayout))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	err = s.statsSvc.Export(c.Request.Context(), c.Writer, statsdomain.ExportRequest{
		Type: exportType,
		From: from,
		To:   to,
	})
	if err != nil {
		// Nothing has been written yet on a validation failure, so the
		// error middleware can still shape the response.
		c.Header("Content-Type", "application/json")
		c.Header("Content-Disposition", "")
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/usecase"
)

// RegisterArchiveRoutes mounts archive listing endpoints.
func RegisterArchiveRoutes(r *gin.RouterGroup, h *Handlers) {
	r.GET("/archives", h.listArchives)
	r.GET("/archives/:date", h.archiveDay)
}

// RegisterMaintenanceRoutes mounts operator endpoints.
func RegisterMaintenanceRoutes(r *gin.RouterGroup, h *Handlers) {
	r.POST("/cache/clear", h.clearCache)
}

func (h *Handlers) listArchives(c *gin.Context) {
	summaries := h.archive.Summaries()
	if summaries == nil {
		summaries = []domain.ArchiveSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"archives": summaries})
}

func (h *Handlers) archiveDay(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	view, err := h.archive.Day(date)
	if errors.Is(err, archive.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "no archive for "+date)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "archive_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) clearCache(c *gin.Context) {
	var req usecase.ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	report, err := h.maintenance.ClearCaches(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("cache clear failed", "error", err)
		respondError(c, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

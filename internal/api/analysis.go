package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/usecase"
)

// RegisterAnalysisRoutes mounts topic analysis endpoints.
func RegisterAnalysisRoutes(r *gin.RouterGroup, h *Handlers) {
	r.POST("/analyze", h.analyze)
	r.GET("/topics", h.topics)
}

func (h *Handlers) analyze(c *gin.Context) {
	list, err := h.analyzer.Analyze(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrNoResults):
		c.Header("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
		respondError(c, http.StatusServiceUnavailable, "no_results", "no news is available right now, try again later")
		return
	case err != nil:
		h.logger.Warn("analysis failed", "error", err)
		respondError(c, http.StatusInternalServerError, "analysis_failed", "analysis could not be completed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) topics(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	list, err := h.analyzer.Topics(c.Request.Context(), date)
	if errors.Is(err, archive.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "no topics archived for "+date)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "topics_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, list)
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/domain"
)

// RegisterArticleRoutes mounts article generation and polling endpoints.
func RegisterArticleRoutes(r *gin.RouterGroup, h *Handlers) {
	r.POST("/articles/:variant", h.generateArticle)
	r.GET("/articles/:variant/:topicId", h.getArticle)
	r.GET("/articles/:variant/:topicId/status", h.articleStatus)
}

type articleRequest struct {
	Topic   domain.Topic      `json:"topic"`
	Context []domain.NewsItem `json:"context"`
	Date    string            `json:"date"`
}

type inProgressResponse struct {
	GeneratingInProgress bool   `json:"generatingInProgress"`
	PlaceholderContent   string `json:"placeholderContent"`
	TopicID              int    `json:"topicId"`
	Variant              string `json:"variant"`
}

func (h *Handlers) generateArticle(c *gin.Context) {
	variant, ok := variantParam(c)
	if !ok {
		return
	}

	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Topic.ID <= 0 || req.Topic.Title == "" {
		respondError(c, http.StatusBadRequest, "invalid_topic", "topic id and title are required")
		return
	}
	if req.Date == "" {
		req.Date = h.analyzer.Today()
	} else if _, err := time.Parse(domain.DateLayout, req.Date); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	out := h.analyzer.Article(c.Request.Context(), req.Date, variant, req.Topic, req.Context)
	if out.InProgress {
		c.JSON(http.StatusAccepted, inProgressResponse{
			GeneratingInProgress: true,
			PlaceholderContent:   out.Article.Content,
			TopicID:              req.Topic.ID,
			Variant:              string(variant),
		})
		return
	}
	c.JSON(http.StatusOK, out.Article)
}

func (h *Handlers) getArticle(c *gin.Context) {
	variant, topicID, date, ok := h.articleKey(c)
	if !ok {
		return
	}
	art, err := h.archive.Article(date, variant, topicID)
	if errors.Is(err, archive.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "article not archived")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "article_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, art)
}

func (h *Handlers) articleStatus(c *gin.Context) {
	variant, topicID, date, ok := h.articleKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.archive.Status(date, variant, topicID))
}

func (h *Handlers) articleKey(c *gin.Context) (domain.Variant, int, string, bool) {
	variant, ok := variantParam(c)
	if !ok {
		return "", 0, "", false
	}
	topicID, err := strconv.Atoi(c.Param("topicId"))
	if err != nil || topicID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_topic", "topicId must be a positive integer")
		return "", 0, "", false
	}
	date, ok := h.dateParam(c)
	if !ok {
		return "", 0, "", false
	}
	return variant, topicID, date, true
}

func variantParam(c *gin.Context) (domain.Variant, bool) {
	variant, err := domain.ParseVariant(c.Param("variant"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_variant", err.Error())
		return "", false
	}
	return variant, true
}

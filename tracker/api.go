package tracker

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
)

const (
	defaultBatchLimit = 10
	maxBatchLimit     = 500
)

// APIServer exposes the tracker to the downstream sentiment consumer.
type APIServer struct {
	tracker *Tracker
}

// NewAPIServer creates a new API server.
func NewAPIServer(t *Tracker) *APIServer {
	return &APIServer{tracker: t}
}

// SetupRouter configures the Gin router with the consumer routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	api.GET("/articles/unanalyzed", s.HandleUnanalyzed)
	api.GET("/articles/:id", s.HandleGetArticle)
	api.POST("/articles/:id/analyzed", s.HandleMarkAnalyzed)
	api.GET("/stats", s.HandleStats)

	return router
}

// UnanalyzedResponse represents the response for GET
// /api/v1/articles/unanalyzed.
type UnanalyzedResponse struct {
	Articles []article.Article `json:"articles"`
	Total    int               `json:"total"`
}

// MarkAnalyzedRequest represents the request for POST
// /api/v1/articles/{id}/analyzed. The result is stored verbatim.
type MarkAnalyzedRequest struct {
	SentimentResult json.RawMessage `json:"sentiment_result,omitempty"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleUnanalyzed handles GET /api/v1/articles/unanalyzed.
func (s *APIServer) HandleUnanalyzed(c *gin.Context) {
	limit := defaultBatchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBatchLimit {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	articles := s.tracker.Unanalyzed(c.Request.Context(), limit)
	c.JSON(http.StatusOK, UnanalyzedResponse{Articles: articles, Total: len(articles)})
}

// HandleGetArticle handles GET /api/v1/articles/{id}.
func (s *APIServer) HandleGetArticle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	a, ok := s.tracker.Article(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "article not found"))
		return
	}

	c.JSON(http.StatusOK, a)
}

// HandleMarkAnalyzed handles POST /api/v1/articles/{id}/analyzed.
func (s *APIServer) HandleMarkAnalyzed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	var req MarkAnalyzedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
			return
		}
	}
	if string(req.SentimentResult) == "null" {
		req.SentimentResult = nil
	}
	if len(req.SentimentResult) > 0 && !json.Valid(req.SentimentResult) {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "sentiment_result must be valid JSON"))
		return
	}

	ctx := c.Request.Context()
	if _, ok := s.tracker.Article(ctx, id); !ok {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "article not found"))
		return
	}
	if !s.tracker.MarkAnalyzed(ctx, id, req.SentimentResult) {
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
		return
	}

	a, _ := s.tracker.Article(ctx, id)
	c.JSON(http.StatusOK, a)
}

// HandleStats handles GET /api/v1/stats.
func (s *APIServer) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Stats(c.Request.Context()))
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oddscope/matchpulse/internal/database"
)

const (
	defaultAccuracyLimit = 50
	maxAccuracyLimit     = 500
)

// StatsHandler serves persisted history and accuracy statistics. With
// persistence disabled every route answers 503.
type StatsHandler struct {
	repo *database.PredictionRepository
}

func NewStatsHandler(repo *database.PredictionRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// GetMatchHistory handles GET /api/v1/matches/:id/history.
func (h *StatsHandler) GetMatchHistory(c *gin.Context) {
	if h.repo == nil {
		persistenceUnavailable(c)
		return
	}
	matchID := c.Param("id")

	history, err := h.repo.MatchHistory(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"match_id":  matchID,
		"count":     len(history),
		"snapshots": history,
	})
}

// GetAccuracy handles GET /api/v1/stats/accuracy?limit=N.
func (h *StatsHandler) GetAccuracy(c *gin.Context) {
	if h.repo == nil {
		persistenceUnavailable(c)
		return
	}

	limit := defaultAccuracyLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxAccuracyLimit {
		limit = maxAccuracyLimit
	}

	stats, err := h.repo.AccuracyStats(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute accuracy stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSummary handles GET /api/v1/stats/summary.
func (h *StatsHandler) GetSummary(c *gin.Context) {
	if h.repo == nil {
		persistenceUnavailable(c)
		return
	}

	summary, err := h.repo.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load store summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func persistenceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not available"})
}

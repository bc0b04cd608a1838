package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oddscope/matchpulse/internal/models"
	"github.com/oddscope/matchpulse/internal/services"
)

// MatchHandler serves the live match list with attached predictions.
type MatchHandler struct {
	ingestion   *services.IngestionService
	predictions *services.PredictionService
}

// LiveMatchEntry pairs a match with its latest periodic evaluation,
// which may be absent right after first sight.
type LiveMatchEntry struct {
	Match      *models.LiveMatch          `json:"match"`
	Prediction *services.PredictionUpdate `json:"prediction,omitempty"`
}

func NewMatchHandler(ingestion *services.IngestionService, predictions *services.PredictionService) *MatchHandler {
	return &MatchHandler{ingestion: ingestion, predictions: predictions}
}

// GetLiveMatches handles GET /api/v1/matches/live.
func (h *MatchHandler) GetLiveMatches(c *gin.Context) {
	matches := h.ingestion.LiveMatches()

	entries := make([]LiveMatchEntry, 0, len(matches))
	for _, match := range matches {
		entry := LiveMatchEntry{Match: match}
		if update, ok := h.predictions.Latest(match.ID); ok {
			entry.Prediction = update
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"matches": entries,
	})
}

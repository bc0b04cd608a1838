package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oddscope/matchpulse/internal/models"
	"github.com/oddscope/matchpulse/internal/services"
)

const maxBatchSize = 50

// PredictionHandler serves on-demand and batch predictions.
type PredictionHandler struct {
	predictions *services.PredictionService
}

// BatchRequest is the POST body for batch evaluation. Matches carry
// caller-supplied telemetry and are evaluated statelessly.
type BatchRequest struct {
	Matches []models.LiveMatch `json:"matches" binding:"required"`
}

func NewPredictionHandler(predictions *services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// GetMatchPrediction handles GET /api/v1/matches/:id/prediction.
func (h *PredictionHandler) GetMatchPrediction(c *gin.Context) {
	matchID := c.Param("id")

	update, err := h.predictions.PredictMatch(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, update)
}

// PredictBatch handles POST /api/v1/predictions/batch.
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Matches) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "matches list is empty"})
		return
	}
	if len(req.Matches) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch size exceeds limit"})
		return
	}

	for i := range req.Matches {
		if req.Matches[i].ID == "" || req.Matches[i].Minute < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every match needs an id and a non-negative minute"})
			return
		}
	}

	updates := h.predictions.PredictBatch(req.Matches)
	c.JSON(http.StatusOK, gin.H{
		"count":       len(updates),
		"predictions": updates,
	})
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/oddscope/matchpulse/internal/api/handlers"
	"github.com/oddscope/matchpulse/internal/database"
	"github.com/oddscope/matchpulse/internal/services"
)

// Dependencies carries everything the route tree needs. Repo may be
// nil when persistence is disabled; redis and db may be nil when the
// process runs degraded.
type Dependencies struct {
	DB          *database.PostgresDB
	Redis       *database.RedisClient
	Repo        *database.PredictionRepository
	Upstream    handlers.UpstreamChecker
	Ingestion   *services.IngestionService
	Predictions *services.PredictionService
	Monitor     *services.ResourceMonitor
}

// SetupRoutes wires all HTTP routes onto the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Upstream, deps.Monitor)
	matches := handlers.NewMatchHandler(deps.Ingestion, deps.Predictions)
	predictions := handlers.NewPredictionHandler(deps.Predictions)
	stats := handlers.NewStatsHandler(deps.Repo)

	router.GET("/health", health.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		matchGroup := v1.Group("/matches")
		{
			matchGroup.GET("/live", matches.GetLiveMatches)
			matchGroup.GET("/:id/prediction", predictions.GetMatchPrediction)
			matchGroup.GET("/:id/history", stats.GetMatchHistory)
		}

		v1.POST("/predictions/batch", predictions.PredictBatch)

		statsGroup := v1.Group("/stats")
		{
			statsGroup.GET("/accuracy", stats.GetAccuracy)
			statsGroup.GET("/summary", stats.GetSummary)
		}
	}
}

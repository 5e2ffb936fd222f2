package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"nooveria/internal/api"
)

// Health reports the database and Redis. Redis being down degrades the quota
// and cache layers but charges still go through, so it does not fail the check.
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(db *sqlx.DB, rdb redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := api.HealthResponse{Status: "ok", Services: map[string]string{}}
		status := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				resp.Status = "unavailable"
				resp.Services["postgres"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				resp.Services["postgres"] = "up"
			}
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				resp.Services["redis"] = "down"
				if resp.Status == "ok" {
					resp.Status = "degraded"
				}
			} else {
				resp.Services["redis"] = "up"
			}
		}

		c.JSON(status, resp)
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

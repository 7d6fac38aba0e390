package payrollrun

import (
	"orvit-payroll/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	runs := r.Group("/payroll-runs")
	{
		runs.GET("", handler.GetAll)
		runs.GET("/:id", handler.GetById)
		runs.GET("/:id/breakdown", handler.GetBreakdown)
		if redisClient != nil {
			runs.POST("/calculate", middleware.Idempotency(redisClient), handler.Calculate)
		} else {
			runs.POST("/calculate", handler.Calculate)
		}
		runs.POST("/:id/void", handler.Void)
	}
}

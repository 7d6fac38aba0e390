package app

import (
	"database/sql"

	"orvit-payroll/internal/component"
	"orvit-payroll/internal/concept"
	"orvit-payroll/internal/employee"
	"orvit-payroll/internal/messaging/kafka"
	"orvit-payroll/internal/middleware"
	"orvit-payroll/internal/payrollrun"
	"orvit-payroll/internal/period"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	periodRepo := period.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	componentRepo := component.NewRepository(gormDB)
	conceptRepo := concept.NewRepository(gormDB)
	runRepo := payrollrun.NewRepository(gormDB)
	auditRepo := payrollrun.NewAuditRepository(db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	var runService payrollrun.Service
	if rdb != nil {
		runService = payrollrun.NewServiceWithCache(
			db, runRepo, auditRepo, outboxRepo,
			periodRepo, employeeRepo, componentRepo, conceptRepo, rdb,
		)
	} else {
		runService = payrollrun.NewService(
			db, runRepo, auditRepo, outboxRepo,
			periodRepo, employeeRepo, componentRepo, conceptRepo,
		)
	}

	// --- Handlers ---
	runHandler := payrollrun.NewHandlerWithRedis(runService, rdb)

	// --- Routes ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(50, 100))

	api := router.Group("/api/v1")
	api.Use(middleware.TenantContext(zap.L()))
	{
		if rdb != nil {
			payrollrun.RegisterRoutes(api, runHandler, rdb)
		} else {
			payrollrun.RegisterRoutes(api, runHandler)
		}
	}

	return nil
}

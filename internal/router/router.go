package router

import (
	"time"

	"github.com/funkypatns/Progym-sub001/internal/config"
	"github.com/funkypatns/Progym-sub001/internal/handler"
	"github.com/funkypatns/Progym-sub001/internal/middleware"
	"github.com/funkypatns/Progym-sub001/internal/repository"
	"github.com/funkypatns/Progym-sub001/internal/service"
	"github.com/funkypatns/Progym-sub001/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	closingRepo := repository.NewClosingRepository(db)

	// Worker dispatcher, injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	registerSvc := service.NewRegisterService(registerRepo)
	shiftSvc := service.NewShiftService(shiftRepo, registerRepo, ledgerRepo, rdb, dispatcher)
	paymentSvc := service.NewPaymentService(paymentRepo, shiftRepo)
	closingSvc := service.NewClosingService(closingRepo, ledgerRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	registersH := handler.NewRegisterHandler(registerSvc)
	shiftsH := handler.NewShiftHandler(shiftSvc)
	paymentsH := handler.NewPaymentHandler(paymentSvc)
	closingsH := handler.NewClosingHandler(closingSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles (cashier, manager, admin) are declared per-endpoint
		shifts := v1.Group("/shifts")
		{
			shifts.POST("", middleware.RequireRole("cashier", "manager", "admin"), shiftsH.Open)
			shifts.GET("/active", middleware.RequireRole("cashier", "manager", "admin"), shiftsH.GetActive)
			shifts.GET("/:id", middleware.RequireRole("cashier", "manager", "admin"), shiftsH.Get)
			shifts.POST("/:id/close", middleware.RequireRole("cashier", "manager", "admin"), shiftsH.Close)
			// Force-close is the recovery path for abandoned drawers
			shifts.POST("/:id/force-close", middleware.RequireRole("manager", "admin"), shiftsH.ForceClose)
			shifts.GET("", middleware.RequireRole("manager", "admin"), shiftsH.History)
		}

		payments := v1.Group("/payments", middleware.RequireRole("cashier", "manager", "admin"))
		{
			payments.POST("", paymentsH.Record)
			payments.GET("", paymentsH.List)
			payments.POST("/:id/refund", paymentsH.Refund)
		}

		v1.POST("/cash-movements", middleware.RequireRole("cashier", "manager", "admin"), paymentsH.RecordMovement)
		v1.GET("/cash-movements", middleware.RequireRole("cashier", "manager", "admin"), paymentsH.ListMovements)

		closings := v1.Group("/closings", middleware.RequireRole("manager", "admin"))
		{
			closings.GET("/preview", closingsH.Preview)
			closings.POST("", closingsH.Create)
			closings.GET("", closingsH.List)
			closings.GET("/:id", closingsH.Get)
			closings.POST("/:id/adjustments", closingsH.AddAdjustment)
			closings.GET("/:id/export", closingsH.Export)
		}

		registers := v1.Group("/registers")
		{
			registers.GET("", middleware.RequireRole("cashier", "manager", "admin"), registersH.List)
			registers.GET("/:id", middleware.RequireRole("cashier", "manager", "admin"), registersH.Get)
			registers.POST("", middleware.RequireRole("admin"), registersH.Create)
			registers.DELETE("/:id", middleware.RequireRole("admin"), registersH.Deactivate)
			registers.PATCH("/:id/reactivate", middleware.RequireRole("admin"), registersH.Reactivate)
		}

		users := v1.Group("/users", middleware.RequireRole("admin"))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

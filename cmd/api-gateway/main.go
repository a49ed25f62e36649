package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/face-attendance-api/api/swagger"
	"github.com/noah-isme/face-attendance-api/internal/faceclient"
	"github.com/noah-isme/face-attendance-api/internal/handler"
	"github.com/noah-isme/face-attendance-api/internal/middleware"
	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/repository"
	"github.com/noah-isme/face-attendance-api/internal/service"
	"github.com/noah-isme/face-attendance-api/pkg/cache"
	"github.com/noah-isme/face-attendance-api/pkg/config"
	"github.com/noah-isme/face-attendance-api/pkg/database"
	"github.com/noah-isme/face-attendance-api/pkg/jobs"
	"github.com/noah-isme/face-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/face-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/face-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/face-attendance-api/pkg/storage"
)

// @title Face Attendance API
// @version 1.0.0
// @description Face-recognition attendance verification for classroom sessions
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, session cache disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Face.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload dir", "error", err)
	}
	// Probe images are deleted after verification; a crash can leave strays.
	if removed, err := uploads.CleanupOlderThan(24 * time.Hour); err != nil {
		logr.Sugar().Warnw("upload dir cleanup failed", "error", err)
	} else if len(removed) > 0 {
		logr.Sugar().Infow("removed stale probe images", "count", len(removed))
	}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	faceRequestRepo := repository.NewFaceRequestRepository(db)

	extractor := faceclient.New(cfg.Face.ServiceURL, cfg.Face.ExtractTimeout)

	metricsSvc := service.NewMetricsService()
	notifySvc := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	}, logr)
	notifySvc.Start(context.Background())
	defer notifySvc.Stop()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "face-attendance-api",
	})
	faceSvc := service.NewFaceService(userRepo, extractor, uploads, cfg.Face.ExtractTimeout, logr)
	faceRequestSvc := service.NewFaceRequestService(faceRequestRepo, userRepo, notifySvc, nil, logr)
	classSvc := service.NewClassService(classRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, classRepo, redisClient, cfg.Face.SessionCacheTTL, metricsSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionRepo, userRepo, extractor, uploads, metricsSvc, cfg.Face.ExtractTimeout, logr)
	exportSvc := service.NewExportService(attendanceRepo, sessionRepo, classRepo, logr, nil, nil)
	userSvc := service.NewUserService(userRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	faceHandler := handler.NewFaceHandler(faceSvc, faceRequestSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	classHandler := handler.NewClassHandler(classSvc, sessionSvc, exportSvc)
	adminHandler := handler.NewAdminHandler(faceRequestSvc, userSvc, authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := extractor.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "face service unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			face := authed.Group("/face")
			{
				face.POST("/register", faceHandler.Enroll)
				face.POST("/update-request", faceHandler.RequestUpdate)
				face.GET("/update-status", faceHandler.UpdateStatus)
			}

			attendance := authed.Group("/attendance")
			attendance.Use(middleware.RequireRoles(models.RoleStudent))
			{
				attendance.POST("/mark", attendanceHandler.Mark)
				attendance.GET("/history", attendanceHandler.History)
				attendance.GET("/stats", attendanceHandler.Stats)
			}

			classes := authed.Group("/classes")
			{
				classes.GET("", classHandler.List)
				classes.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), classHandler.Create)
				classes.POST("/join", middleware.RequireRoles(models.RoleStudent), classHandler.Join)
				classes.POST("/:id/sessions", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), classHandler.OpenSession)
				classes.GET("/:id/sessions/active", classHandler.ActiveSession)
			}

			authed.GET("/sessions/:id/report", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), classHandler.SessionReport)

			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				admin.GET("/face-requests", adminHandler.ListFaceRequests)
				admin.POST("/face-requests/:id/approve", adminHandler.ApproveFaceRequest)
				admin.POST("/face-requests/:id/deny", adminHandler.DenyFaceRequest)
				admin.GET("/users", adminHandler.ListUsers)
				admin.POST("/users", adminHandler.CreateUser)
				admin.PUT("/users/:id", adminHandler.UpdateUser)
				admin.DELETE("/users/:id", adminHandler.DeleteUser)
				admin.GET("/stats", adminHandler.Stats)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

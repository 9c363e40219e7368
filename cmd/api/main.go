package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/class-attendance-api/api/swagger"
	"github.com/noah-isme/class-attendance-api/internal/handler"
	"github.com/noah-isme/class-attendance-api/internal/middleware"
	"github.com/noah-isme/class-attendance-api/internal/repository"
	"github.com/noah-isme/class-attendance-api/internal/service"
	"github.com/noah-isme/class-attendance-api/migrations"
	"github.com/noah-isme/class-attendance-api/pkg/cache"
	"github.com/noah-isme/class-attendance-api/pkg/config"
	"github.com/noah-isme/class-attendance-api/pkg/database"
	"github.com/noah-isme/class-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-attendance-api/pkg/middleware/requestid"
)

// @title Class Attendance API
// @version 1.0.0
// @description Classrooms, students and daily attendance tracking.
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	version, err := database.Migrate(context.Background(), db, migrations.FS, logr)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	logr.Info("schema ready", zap.Uint("version", version))

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, db, redisClient, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) {
	validate := service.NewValidator()

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "class-attendance"),
		metrics,
		cfg.Cache.StatsTTL,
		logr,
		cfg.Cache.Enabled && redisClient != nil,
	)
	revalidator := service.NewRevalidator(cacheSvc, logr)

	classroomRepo := repository.NewClassroomRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	classroomSvc := service.NewClassroomService(classroomRepo, revalidator, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classroomRepo, service.NewStudentIDGenerator(studentRepo), revalidator, validate, logr)
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Repo:        attendanceRepo,
		Students:    studentRepo,
		Cache:       cacheSvc,
		Revalidator: revalidator,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Config:      service.AttendanceServiceConfig{StatsTTL: cfg.Cache.StatsTTL},
	})
	exportSvc := service.NewExportService(attendanceSvc, logr)

	metricsHandler := handler.NewMetricsHandler(metrics, db, cacheSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc, logr)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, attendanceSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.RequestTimeout(cfg.Database.QueryTimeout))

	attendance := api.Group("/attendance")
	attendance.POST("", attendanceHandler.Record)
	attendance.POST("/bulk", attendanceHandler.RecordBulk)
	attendance.GET("", attendanceHandler.List)
	attendance.GET("/stats", attendanceHandler.Stats)
	attendance.GET("/export", attendanceHandler.Export)
	attendance.DELETE("/:id", attendanceHandler.Delete)

	classrooms := api.Group("/classrooms")
	classrooms.GET("", classroomHandler.List)
	classrooms.POST("", classroomHandler.Create)
	classrooms.GET("/roster", classroomHandler.Roster)
	classrooms.GET("/:id", classroomHandler.Get)
	classrooms.PUT("/:id", classroomHandler.Update)
	classrooms.DELETE("/:id", classroomHandler.Delete)
	classrooms.GET("/:id/students", studentHandler.ListByClassroom)

	students := api.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.GET("/:id", studentHandler.Get)
	students.PUT("/:id", studentHandler.Update)
	students.DELETE("/:id", studentHandler.Delete)
	students.GET("/:id/attendance", studentHandler.History)

	if cfg.Dashboard.Enabled {
		dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
			Roster:     classroomRepo,
			Attendance: attendanceRepo,
			Cache:      cacheSvc,
			Logger:     logr,
			Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
		})
		api.GET("/dashboard", handler.NewDashboardHandler(dashboardSvc).Summary)
	}
}

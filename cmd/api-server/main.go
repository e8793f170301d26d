package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campushq/exam-office-api/api/swagger"
	"github.com/campushq/exam-office-api/internal/handler"
	"github.com/campushq/exam-office-api/internal/middleware"
	"github.com/campushq/exam-office-api/internal/models"
	"github.com/campushq/exam-office-api/internal/repository"
	"github.com/campushq/exam-office-api/internal/service"
	"github.com/campushq/exam-office-api/pkg/cache"
	"github.com/campushq/exam-office-api/pkg/config"
	"github.com/campushq/exam-office-api/pkg/database"
	"github.com/campushq/exam-office-api/pkg/jobs"
	"github.com/campushq/exam-office-api/pkg/logger"
	corsmiddleware "github.com/campushq/exam-office-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/exam-office-api/pkg/middleware/requestid"
)

// @title Exam Office API
// @version 1.0.0
// @description Internal assessment pattern configuration and mark calculation service
// @BasePath /api/v1
// @schemes http

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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, pattern resolution cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	patternRepo := repository.NewPatternRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	assocRepo := repository.NewAssociationRepository(db)
	marksRepo := repository.NewMarksRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "exam-office-api",
	})

	resolverSvc := newResolver(assocRepo, courseRepo, cacheRepo, cfg, logr)
	patternSvc := service.NewPatternService(patternRepo, ruleRepo, assocRepo, validate, logr)

	// The queue handler delegates through a pointer assigned after the
	// service exists, since each needs the other.
	var marksSvc *service.MarksService
	queue := jobs.NewQueue("marks", func(ctx context.Context, job jobs.Job) error {
		return marksSvc.HandleBatchJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Marks.WorkerConcurrency,
		BufferSize: cfg.Marks.QueueBuffer,
		MaxRetries: cfg.Marks.WorkerRetries,
		Logger:     logr,
	})
	marksSvc = service.NewMarksService(resolverSvc, patternRepo, ruleRepo, marksRepo, courseRepo, attendanceRepo, queue, metricsSvc, validate, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	exportSvc := service.NewExportService(marksRepo, courseRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	patternHandler := handler.NewPatternHandler(patternSvc, resolverSvc)
	marksHandler := handler.NewMarksHandler(marksSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	configure := middleware.RequireRoles(models.RoleAdmin, models.RoleExamController)
	view := middleware.RequireRoles(models.RoleAdmin, models.RoleExamController, models.RoleFacilitator)

	patterns := api.Group("/patterns", middleware.JWT(authSvc))
	{
		patterns.GET("", view, patternHandler.List)
		patterns.GET("/:id", view, patternHandler.Get)
		patterns.POST("", configure, middleware.Audit(userRepo, models.AuditActionPatternCreate, "pattern"), patternHandler.Create)
		patterns.PUT("/:id", configure, middleware.Audit(userRepo, models.AuditActionPatternUpdate, "pattern"), patternHandler.Update)
		patterns.POST("/:id/activate", configure, middleware.Audit(userRepo, models.AuditActionPatternActivate, "pattern"), patternHandler.Activate)
		patterns.POST("/:id/archive", configure, middleware.Audit(userRepo, models.AuditActionPatternArchive, "pattern"), patternHandler.Archive)

		patterns.GET("/:id/eligibility-rules", view, patternHandler.EligibilityRules)
		patterns.PUT("/:id/eligibility-rules", configure, patternHandler.SaveEligibilityRule)
		patterns.DELETE("/:id/eligibility-rules/:ruleId", configure, patternHandler.DeleteEligibilityRule)
		patterns.GET("/:id/passing-rules", view, patternHandler.PassingRules)
		patterns.PUT("/:id/passing-rules", configure, patternHandler.SavePassingRule)
		patterns.DELETE("/:id/passing-rules/:ruleId", configure, patternHandler.DeletePassingRule)

		patterns.GET("/:id/courses", view, patternHandler.CourseAssociations)
		patterns.POST("/:id/courses", configure, patternHandler.AssociateCourse)
		patterns.DELETE("/:id/courses/:associationId", configure, patternHandler.RemoveCourseAssociation)
		patterns.GET("/:id/programs", view, patternHandler.ProgramAssociations)
		patterns.POST("/:id/programs", configure, patternHandler.AssociateProgram)
	}

	api.GET("/courses/:courseId/pattern", middleware.JWT(authSvc), view, patternHandler.Resolve)

	marks := api.Group("/marks", middleware.JWT(authSvc))
	{
		marks.POST("/calculate", view, middleware.Audit(userRepo, models.AuditActionMarksCalculate, "marks"), marksHandler.Calculate)
		marks.POST("/preview", view, marksHandler.Preview)
		marks.POST("/calculate-batch", configure, middleware.Audit(userRepo, models.AuditActionMarksCalculate, "marks"), marksHandler.CalculateBatch)
		marks.GET("/learners/:learnerId/courses/:courseId", middleware.RBAC(string(models.RoleAdmin), string(models.RoleExamController), string(models.RoleFacilitator), string(models.RoleLearner)), marksHandler.Get)
		marks.GET("/courses/:courseId", view, marksHandler.ListByCourse)
	}

	if cfg.Exports.Enabled {
		api.GET("/exports/courses/:courseId/marks", middleware.JWT(authSvc), view, exportHandler.CourseRegister)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newResolver(assocRepo *repository.AssociationRepository, courseRepo *repository.CourseRepository, cacheRepo *repository.CacheRepository, cfg *config.Config, logr *zap.Logger) *service.ResolverService {
	var resolver *service.ResolverService
	if cacheRepo != nil {
		resolver = service.NewResolverService(assocRepo, courseRepo, cacheRepo, logr)
	} else {
		resolver = service.NewResolverService(assocRepo, courseRepo, nil, logr)
	}
	resolver.SetCacheTTL(cfg.Patterns.ResolutionCacheTTL)
	return resolver
}

package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	internalhandler "github.com/noah-isme/timeplan-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timeplan-api/internal/middleware"
	"github.com/noah-isme/timeplan-api/internal/planner"
	"github.com/noah-isme/timeplan-api/internal/repository"
	"github.com/noah-isme/timeplan-api/internal/service"
	"github.com/noah-isme/timeplan-api/pkg/cache"
	"github.com/noah-isme/timeplan-api/pkg/config"
	"github.com/noah-isme/timeplan-api/pkg/database"
	"github.com/noah-isme/timeplan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timeplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timeplan-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	var previews *planner.PreviewStore
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("preview cache disabled", "error", err)
	} else {
		defer client.Close()
		previews = planner.NewPreviewStore(client, cfg.Scheduler.ProposalTTL)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	catalogRepo := repository.NewCatalogRepository(subjectRepo, teacherRepo, classRepo, roomRepo)
	requirementRepo := repository.NewRequirementRepository(db)
	basisPlanRepo := repository.NewBasisPlanRepository(db)
	ruleProfileRepo := repository.NewRuleProfileRepository(db)
	planRepo := repository.NewPlanRepository(db)

	plannerSvc := planner.NewService(
		requirementRepo,
		catalogRepo,
		basisPlanRepo,
		ruleProfileRepo,
		planRepo,
		previews,
		metricsSvc,
		cfg.Scheduler,
	)
	planHandler := internalhandler.NewPlanGeneratorHandler(plannerSvc, planRepo)

	api := r.Group(cfg.APIPrefix)

	plans := api.Group("/plans")
	plans.POST("/generate", planHandler.Generate)
	plans.POST("/analyze", planHandler.Analyze)
	plans.POST("/previews/:id/save", planHandler.SavePreview)
	plans.GET("", planHandler.List)
	plans.GET("/:id", planHandler.Get)
	plans.GET("/:id/slots", planHandler.Slots)
	plans.DELETE("/:id", planHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

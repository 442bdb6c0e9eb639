package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/controller"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/pkg/database"
	"nmt_prep_backend/pkg/logger"
	"nmt_prep_backend/pkg/monitoring"
	"nmt_prep_backend/pkg/security"
	"nmt_prep_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user       *repository.UserRepository
	catalog    *repository.CatalogRepository
	progress   *repository.ProgressRepository
	attempt    *repository.AttemptRepository
	permission *repository.PermissionRepository
	lesson     *repository.LessonRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	catalog    *service.CatalogService
	testing    *service.TestingService
	progress   *service.ProgressService
	permission *service.PermissionService
	calendar   *service.CalendarService
	statistics *service.StatisticsService
	storage    *service.StorageService
	scheduler  *service.Scheduler
}

type controllers struct {
	auth     *controller.AuthController
	user     *controller.UserController
	test     *controller.TestController
	progress *controller.ProgressController
	calendar *controller.CalendarController
	admin    *controller.AdminController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		catalog:    repository.NewCatalogRepository(db),
		progress:   repository.NewProgressRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		permission: repository.NewPermissionRepository(db),
		lesson:     repository.NewLessonRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.catalog = service.NewCatalogService(repos.catalog, rdb, cfg)
	s.progress = service.NewProgressService(repos.progress, s.catalog, rdb, cfg)
	s.auth = service.NewAuthService(repos.user, s.progress, cfg)
	s.user = service.NewUserService(repos.user, repos.permission, s.progress, repos.progress)
	s.testing = service.NewTestingService(repos.catalog, repos.attempt, s.progress)
	s.permission = service.NewPermissionService(repos.permission, repos.user)
	s.calendar = service.NewCalendarService(repos.lesson)
	s.statistics = service.NewStatisticsService(repos.user, repos.progress, repos.attempt)
	s.scheduler = service.NewScheduler(s.progress, s.calendar, rdb)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		user:     controller.NewUserController(s.user, s.storage),
		test:     controller.NewTestController(s.catalog, s.testing, s.permission),
		progress: controller.NewProgressController(s.progress),
		calendar: controller.NewCalendarController(s.calendar),
		admin:    controller.NewAdminController(s.user, s.catalog, s.permission, s.statistics, s.storage, s.progress),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("nmt-prep", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	services.scheduler.Start()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	// Flushes dirty progress before the listener closes.
	if a.services != nil && a.services.scheduler != nil {
		a.services.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}

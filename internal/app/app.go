package app

import (
	"context"
	"institute_backend/internal/config"
	"institute_backend/internal/controller"
	"institute_backend/internal/repository"
	"institute_backend/internal/service"
	"institute_backend/pkg/configwatcher"
	"institute_backend/pkg/database"
	"institute_backend/pkg/logger"
	"institute_backend/pkg/monitoring"
	"institute_backend/pkg/security"
	"institute_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	rateLimiter     *security.RateLimiter
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	registration *repository.RegistrationRepository
	test         *repository.TestRepository
	result       *repository.ResultRepository
	sessionState repository.SessionStateBackend
}

type services struct {
	identity    *service.IdentityService
	certificate *service.CertificateService
	submission  *service.SubmissionPipeline
	exam        *service.ExamService
	rank        *service.RankService
}

type controllers struct {
	exam   *controller.ExamController
	result *controller.ResultController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		user:         repository.NewUserRepository(db),
		registration: repository.NewRegistrationRepository(db),
		test:         repository.NewTestRepository(db),
		result:       repository.NewResultRepository(db),
	}

	if cfg.Exam.SessionBackend == "memory" {
		repos.sessionState = repository.NewMemorySessionStateRepository()
	} else {
		repos.sessionState = repository.NewRedisSessionStateRepository(rdb, cfg.Exam.SessionTTL())
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.identity = service.NewIdentityService(repos.user, repos.registration)
	s.certificate = service.NewCertificateService(service.NewObjectStore(&cfg.Storage))
	s.submission = service.NewSubmissionPipeline(repos.result, s.identity, s.certificate)
	s.exam = service.NewExamService(repos.test, repos.result, s.identity, repos.sessionState, s.submission, cfg.Exam.TickInterval)
	s.rank = service.NewRankService(repos.result)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		exam:   controller.NewExamController(s.exam, a.Config.CORS.AllowedOrigins),
		result: controller.NewResultController(s.exam, s.rank),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.rateLimiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.rateLimiter.Middleware())
	a.RegisterConfigCallback(func(c *config.Config) {
		a.rateLimiter.Update(c.RateLimit.MaxRequests, time.Duration(c.RateLimit.WindowMinutes)*time.Minute)
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不迁移，需通过 -migrate 显式开启
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	var rdb *redis.Client
	if cfg.Exam.SessionBackend == "redis" {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.RegisterConfigCallback(logger.ApplyConfig)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("institute-exam", &cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	// 本地存储目录只供证书签发方读取，不挂到 HTTP 上
	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go a.rateLimiter.Cleanup(ctx.Done())

	// 配置热更新
	go func() {
		configFile := filepath.Join(a.ConfigDir, "config.yaml")
		err := configwatcher.WatchConfig(ctx, configFile, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 停止所有计时器，未交卷的状态已在 Redis 中
	if a.services != nil {
		a.services.exam.Shutdown()
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}

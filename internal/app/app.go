package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pcq_backend/internal/config"
	"pcq_backend/internal/controller"
	"pcq_backend/internal/repository"
	"pcq_backend/internal/service"
	"pcq_backend/pkg/configwatcher"
	"pcq_backend/pkg/database"
	"pcq_backend/pkg/logger"
	"pcq_backend/pkg/monitoring"
	"pcq_backend/pkg/security"
	"pcq_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigPath      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	answer  *repository.AnswerRepository
	runLock *repository.RunLockRepository
}

type services struct {
	answer        *service.AnswerService
	consolidation *service.ConsolidationService
	disposal      *service.DisposalService
	storage       *service.StorageService
}

type controllers struct {
	pcq           *controller.PcqController
	consolidation *controller.ConsolidationController
	token         *controller.TokenController
	health        *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) (*repositories, error) {
	encryptor, err := security.NewFieldEncryptor(cfg.PCQ.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if !encryptor.Enabled() {
		logger.Log.Warn("PCQ encryption key not configured, party_id will be stored in plain text")
	}

	repos := &repositories{
		answer: repository.NewAnswerRepository(db, encryptor),
	}
	if rdb != nil {
		hostname, _ := os.Hostname()
		repos.runLock = repository.NewRunLockRepository(rdb, fmt.Sprintf("%s/%s", hostname, uuid.NewString()))
	}
	return repos, nil
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	validator, err := service.NewSubmissionValidator(cfg.PCQ.SchemaDocument, cfg.PCQ.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	storage, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	// 接口值中不能放入 nil 指针，否则 Locker != nil 判断失效
	var locker service.RunLocker
	if repos.runLock != nil {
		locker = repos.runLock
	}

	return &services{
		answer:        service.NewAnswerService(repos.answer, validator),
		consolidation: service.NewConsolidationService(repos.answer),
		disposal:      service.NewDisposalService(repos.answer, locker, cfg.Disposer),
		storage:       storage,
	}, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client, cfg *config.Config) *controllers {
	return &controllers{
		pcq:           controller.NewPcqController(s.answer),
		consolidation: controller.NewConsolidationController(s.consolidation, &cfg.Consolidation),
		token:         controller.NewTokenController(s.storage),
		health:        controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 按配置间隔运行清理任务，间隔随配置热更新生效
func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go func() {
		timer := time.NewTimer(s.disposal.Settings().Interval())
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if _, err := s.disposal.DisposeExpired(ctx); err != nil {
					logger.Log.Error("PCQ disposer run failed", zap.Error(err))
				}
				timer.Reset(s.disposal.Settings().Interval())
			}
		}
	}()
}

// New 使用已建立的连接组装应用，rdb 可为 nil
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos, err := app.initRepositories(db, rdb, cfg)
	if err != nil {
		return nil, err
	}
	services, err := app.initServices(repos, cfg)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb, cfg)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.disposal.UpdateSettings(newCfg.Disposer)
	})

	return app, nil
}

func NewApp(cfg *config.Config, configPath string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app, err := New(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}
	app.ConfigPath = configPath

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	a.startBackgroundTasks(bgCtx, a.services)

	if a.ConfigPath != "" {
		go func() {
			path := filepath.Join(a.ConfigPath, "config.yaml")
			err := configwatcher.WatchConfig(bgCtx, path, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

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

	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}

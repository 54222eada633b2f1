package app

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/controller"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/configwatcher"
	"coder_edu_assessment/pkg/database"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/security"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.IPRateLimiter
	tracer          *sdktrace.TracerProvider
	scheduler       *reconcileScheduler
	cancel          context.CancelFunc
	configDir       string
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	assessment  *repository.AssessmentRepository
	submission  *repository.SubmissionRepository
	catalog     *repository.CatalogRepository
	progress    *repository.ProgressRepository
	certificate *repository.CertificateRepository
}

type services struct {
	storage     *service.StorageService
	notifier    service.Notifier
	localBus    *service.LocalProgressBus
	redisBus    *service.RedisProgressBus
	progress    *service.ProgressService
	submission  *service.SubmissionService
	quiz        *service.QuizService
	assignment  *service.AssignmentService
	assessment  *service.AssessmentService
	catalog     *service.CatalogService
	certificate *service.CertificateService
}

type controllers struct {
	quiz        *controller.QuizController
	assignment  *controller.AssignmentController
	submission  *controller.SubmissionController
	assessment  *controller.AssessmentController
	catalog     *controller.CatalogController
	progress    *controller.ProgressController
	certificate *controller.CertificateController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		assessment:  repository.NewAssessmentRepository(db),
		submission:  repository.NewSubmissionRepository(db),
		catalog:     repository.NewCatalogRepository(db),
		progress:    repository.NewProgressRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.notifier = service.NewNotifier(&cfg.Notify)

	s.progress = service.NewProgressService(db, repos.catalog, repos.assessment, repos.submission, repos.progress, repos.user, s.notifier)

	// 评分组件只通过事件总线触发进度汇总
	s.localBus = service.NewLocalProgressBus()
	s.localBus.Subscribe(s.progress.HandleEvent)
	var publisher service.ProgressPublisher = s.localBus
	if cfg.Progress.EventBus == util.EventBusRedis && rdb != nil {
		s.redisBus = service.NewRedisProgressBus(rdb, cfg.Progress.Channel, s.localBus)
		publisher = s.redisBus
	}

	s.submission = service.NewSubmissionService(db, repos.assessment, repos.submission, repos.catalog, repos.progress, publisher)
	s.quiz = service.NewQuizService(s.submission)
	s.assignment = service.NewAssignmentService(s.submission, s.storage)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.catalog)
	s.catalog = service.NewCatalogService(repos.catalog)
	s.certificate = service.NewCertificateService(repos.certificate, s.progress, s.notifier)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:        controller.NewQuizController(s.quiz),
		assignment:  controller.NewAssignmentController(s.assignment),
		submission:  controller.NewSubmissionController(s.submission),
		assessment:  controller.NewAssessmentController(s.assessment),
		catalog:     controller.NewCatalogController(s.catalog, s.progress),
		progress:    controller.NewProgressController(s.progress),
		certificate: controller.NewCertificateController(s.certificate),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewIPRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.limiter.SetLimit(newCfg.RateLimit.MaxRequests, time.Duration(newCfg.RateLimit.WindowMinutes)*time.Minute)
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// reconcileScheduler 定时对账，配置热更新时替换调度表达式
type reconcileScheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	spec     string
	progress *service.ProgressService
}

func newReconcileScheduler(progress *service.ProgressService) *reconcileScheduler {
	return &reconcileScheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		progress: progress,
	}
}

func (r *reconcileScheduler) Schedule(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if spec == r.spec {
		return nil
	}
	if r.entry != 0 {
		r.cron.Remove(r.entry)
		r.entry = 0
	}
	r.spec = spec
	if spec == "" {
		logger.Log.Info("Progress reconciliation disabled")
		return nil
	}

	id, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		start := time.Now()
		n, err := r.progress.ReconcileAll(ctx)
		if err != nil {
			logger.Log.Error("Progress reconciliation failed", zap.Int("processed", n), zap.Error(err))
			return
		}
		logger.Log.Info("Progress reconciliation finished", zap.Int("processed", n), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		r.spec = ""
		return err
	}
	r.entry = id
	logger.Log.Info("Progress reconciliation scheduled", zap.String("schedule", spec))
	return nil
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	go a.limiter.Cleanup(ctx)

	if s.redisBus != nil {
		go s.redisBus.Run(ctx, s.progress.HandleEvent)
	}

	a.scheduler = newReconcileScheduler(s.progress)
	if err := a.scheduler.Schedule(cfg.Progress.ReconcileCron); err != nil {
		logger.Log.Error("Invalid reconcile schedule", zap.String("schedule", cfg.Progress.ReconcileCron), zap.Error(err))
	}
	a.scheduler.cron.Start()
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		if err := a.scheduler.Schedule(newCfg.Progress.ReconcileCron); err != nil {
			logger.Log.Error("Invalid reconcile schedule", zap.String("schedule", newCfg.Progress.ReconcileCron), zap.Error(err))
		}
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(a.configDir, "config.yaml"), func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher not started", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Starting assessment grading service", zap.String("version", cfg.Version))

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		configDir: configDir,
	}
	if cfg.MigrateOnly {
		return app
	}

	// 只有 redis 事件总线需要 Redis
	var rdb *redis.Client
	if cfg.Progress.EventBus == util.EventBusRedis {
		rdb, err = database.InitRedis(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(&cfg.Tracing, cfg.Version)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exited")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		<-a.scheduler.cron.Stop().Done()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

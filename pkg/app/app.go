// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/outputvault/pkg/api"
	"github.com/yeisme/outputvault/pkg/cache"
	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/jobs"
	"github.com/yeisme/outputvault/pkg/internal/storage"
	"github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/metrics"
	"github.com/yeisme/outputvault/pkg/middleware"
	"github.com/yeisme/outputvault/pkg/scheduler"
	"github.com/yeisme/outputvault/pkg/tracing"
)

type App struct {
	Engine    *gin.Engine
	Scheduler *scheduler.Scheduler

	config  *configs.AppConfig
	manager *storage.Manager
	cancel  contextPkg.CancelFunc
}

func NewApp(configPath string) *App {
	ctx, cancel := contextPkg.WithCancel(contextPkg.Background())
	engine := gin.New()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	// 初始化追踪
	config := configs.GetConfig()
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine.Use(
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
	)

	// GET 响应缓存，依赖 KV 存储，写操作不受影响
	if kvc := manager.GetKVClient(); kvc != nil {
		engine.Use(middleware.CacheMiddleware(middleware.DefaultCacheConfig(cache.NewCache(kvc))))
	}

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	// 定时任务与事件消费者：渲染轮询 + 衍生流水线
	if err := jobs.RegisterCronJobs(sched, manager); err != nil {
		fmt.Printf("Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.StartConsumers(ctx, manager); err != nil {
		fmt.Printf("Error starting consumers: %v\n", err)
		os.Exit(1)
	}

	sched.Start()

	return &App{
		Engine:    engine,
		Scheduler: sched,
		config:    config,
		manager:   manager,
		cancel:    cancel,
	}
}

func (a *App) Run() error {
	defer a.Close()

	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}

// Close 停止调度器与事件消费者并释放存储客户端.
func (a *App) Close() {
	a.cancel()

	if a.Scheduler != nil {
		_ = a.Scheduler.Shutdown()
	}

	if a.manager != nil {
		if mqc := a.manager.GetMQClient(); mqc != nil {
			_ = mqc.Close()
		}

		if kvc := a.manager.GetKVClient(); kvc != nil {
			_ = kvc.Close()
		}
	}
}

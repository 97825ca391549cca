// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/notify"
	"github.com/haierkeys/doc-history-service/internal/service"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/storage"
	"github.com/haierkeys/doc-history-service/pkg/workerpool"
	"github.com/haierkeys/doc-history-service/pkg/writequeue"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao
	Hub    notify.Hub

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	// Repository 层
	DocumentRepo domain.DocumentRepository
	VersionRepo  domain.VersionRepository
	OpRepo       domain.OpRepository

	// Service 层
	VersionService service.VersionService
	OpService      service.OpService
	ArchiveService service.ArchiveService

	startedAt time.Time

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// Option NewApp 选项
type Option func(*App)

// WithHub 使用外部创建的事件中心，忽略 notify 配置
func WithHub(h notify.Hub) Option {
	return func(a *App) {
		a.Hub = h
	}
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		startedAt:  time.Now(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	// 初始化房间事件中心
	if a.Hub == nil {
		hub, err := newHub(cfg.Notify, logger)
		if err != nil {
			return nil, err
		}
		a.Hub = hub
	}

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	// 初始化 DAO（使用依赖注入）
	a.Dao = dao.New(db,
		dao.WithLogger(logger),
		dao.WithWriteQueue(a.writeQueueMgr),
		dao.WithInsertRetries(cfg.App.VersionInsertRetries),
		dao.WithRetryHook(service.RecordInsertRetry),
	)

	// 初始化 Repository 层
	a.DocumentRepo = dao.NewDocumentRepository(a.Dao)
	a.VersionRepo = dao.NewVersionRepository(a.Dao)
	a.OpRepo = dao.NewOpRepository(a.Dao)

	// 初始化 Service 层（依赖注入）
	svcConfig := cfg.GetServiceConfig()
	a.VersionService = service.NewVersionService(a.VersionRepo, a.DocumentRepo, a.Hub, a.workerPool, logger, svcConfig)
	a.OpService = service.NewOpService(a.OpRepo, logger, svcConfig)

	// 初始化归档存储，未启用时 ArchiveService 返回 ErrorArchiveDisabled
	var archiveStore storage.Storager
	if cfg.Archive.Enabled {
		store, err := storage.NewClient(context.Background(), &cfg.Archive.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("archive storage: %w", err)
		}
		archiveStore = store
	}
	a.ArchiveService = service.NewArchiveService(a.VersionRepo, a.DocumentRepo, archiveStore, cfg.Archive.Prefix, logger)

	logger.Info("App container initialized successfully",
		zap.String("notifyDriver", cfg.Notify.Driver),
		zap.Bool("archiveEnabled", cfg.Archive.Enabled),
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

func newHub(c NotifyConfig, logger *zap.Logger) (notify.Hub, error) {
	switch c.Driver {
	case "", "memory":
		return notify.NewMemoryHub(logger), nil
	case "redis":
		hub, err := notify.NewRedisHub(c.RedisURL, c.ChannelPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("notify redis hub: %w", err)
		}
		return hub, nil
	}
	return nil, fmt.Errorf("unsupported notify driver %q", c.Driver)
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// Uptime 服务已运行时间
func (a *App) Uptime() time.Duration {
	return time.Since(a.startedAt)
}

// WorkerPool 获取 Worker Pool（用于高级操作）
func (a *App) WorkerPool() *workerpool.Pool {
	return a.workerPool
}

// WriteQueueManager 获取 Write Queue Manager（用于高级操作）
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Worker Pool -> Write Queue Manager -> Hub -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	// 如果没有提供 context，使用默认超时
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	// 标记关闭
	select {
	case <-a.shutdownCh:
		// 已经关闭
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 关闭 Worker Pool（停止接受新任务，等待现有任务完成）
	if a.workerPool != nil {
		a.logger.Info("Shutting down worker pool...")
		if err := a.workerPool.Shutdown(ctx); err != nil {
			a.logger.Warn("Worker pool shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		}
	}

	// 2. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	// 3. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All background operations completed")
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 4. 关闭事件中心，订阅通道随之关闭
	if a.Hub != nil {
		if err := a.Hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notify hub close: %w", err))
		}
	}

	// 5. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh 返回关闭信号通道（用于监听关闭事件）
func (a *App) ShutdownCh() <-chan struct{} {
	return a.shutdownCh
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
// 返回一个函数，在操作完成时调用
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}

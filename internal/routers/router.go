package routers

import (
	"context"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/middleware"
	"github.com/haierkeys/doc-history-service/internal/routers/api_router"
	"github.com/haierkeys/doc-history-service/internal/routers/websocket_router"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/lxzan/gws"
)

// NewRouter builds the public engine and the room websocket server
// NewRouter 创建公开路由与房间 WebSocket 服务
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) (*gin.Engine, *pkgapp.WebsocketServer, error) {

	// 获取配置
	cfg := appContainer.Config()

	validate, _ := binding.Validator.Engine().(*validator.Validate)
	var wss = pkgapp.NewWebsocketServer(pkgapp.WebsocketServerConfig{
		GWSOption: gws.ServerOption{
			CheckUtf8Enabled:    true,
			ParallelEnabled:     true,                                 // 开启并行消息处理
			Recovery:            gws.Recovery,                         // 开启异常恢复
			PermessageDeflate:   gws.PermessageDeflate{Enabled: true}, // 开启压缩
			ParallelGolimit:     8,
			ReadMaxPayloadSize:  1024 * 1024 * 16, // 设置最大读取缓冲区大小 16MB
			WriteMaxPayloadSize: 1024 * 1024 * 16, // 设置最大写入缓冲区大小 16MB
		},
	}, appContainer.Logger(), validate)

	// 房间协同消息（注入 App Container）
	roomWSHandler := websocket_router.NewRoomWSHandler(appContainer)
	roomWSHandler.Register(wss)

	// 版本变更事件在 App 关闭时停止转发
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-appContainer.ShutdownCh()
		cancel()
	}()
	if err := roomWSHandler.ForwardEvents(ctx, wss); err != nil {
		cancel()
		return nil, nil, err
	}

	methodLimiters := limiter.NewMethodLimiter().AddBuckets(cfg.GetRateLimitRules("/api/versions", "/api/ops")...)

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.Cors())
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		// 创建 Handlers（注入 App Container）
		versionHandler := api_router.NewVersionHandler(appContainer)
		opHandler := api_router.NewOpHandler(appContainer)
		healthHandler := api_router.NewHealthHandler(appContainer)
		archiveHandler := api_router.NewArchiveHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.GET("/version", healthHandler.ServerVersion)

		api.POST("/versions", versionHandler.Save)
		api.GET("/versions", versionHandler.Query)
		api.POST("/versions/revert", versionHandler.Revert)
		api.GET("/versions/diff", versionHandler.Diff)
		api.GET("/documents", versionHandler.Document)

		api.POST("/ops", opHandler.Append)
		api.GET("/ops", opHandler.List)

		api.POST("/archive", archiveHandler.Room)

		api.GET("/rooms/events", wss.Run())
	}

	r.Use(middleware.Cors())
	r.NoRoute(middleware.NoFound())

	return r, wss, nil
}

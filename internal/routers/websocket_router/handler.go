// Package websocket_router 提供 WebSocket 路由处理器
package websocket_router

import (
	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/middleware"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/logger"

	"go.uber.org/zap"
)

// WSHandler WebSocket 基础 Handler 结构体，封装 App Container
// 所有 WebSocket Handler 都应该嵌入此结构体以获得依赖注入能力
type WSHandler struct {
	App *app.App
}

// NewWSHandler 创建 WebSocket 基础 Handler 实例
func NewWSHandler(a *app.App) *WSHandler {
	return &WSHandler{App: a}
}

func traceID(c *pkgapp.WebsocketClient) string {
	if c == nil || c.Ctx == nil {
		return ""
	}
	return middleware.GetTraceIDFromGin(c.Ctx)
}

// logDebug 记录调试日志，包含 Trace ID 与房间
func (h *WSHandler) logDebug(c *pkgapp.WebsocketClient, method string, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String(logger.FieldTraceID, traceID(c)),
		zap.String(logger.FieldRoomID, c.RoomID),
	}, fields...)
	h.App.Logger().Debug(method, all...)
}

// invalidParams 向发送方返回参数错误
func (h *WSHandler) invalidParams(c *pkgapp.WebsocketClient, method, action string, errs pkgapp.ValidErrors) {
	h.App.Logger().Warn(method+".BindAndValid err",
		zap.String(logger.FieldTraceID, traceID(c)),
		zap.String(logger.FieldRoomID, c.RoomID),
		zap.Error(errs))
	c.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()), action)
}

// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"net/http"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dto"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// Check 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态，包括数据库连接
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.HealthDTO}
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	response := dto.HealthDTO{
		Status:   "healthy",
		Version:  h.App.Version().Version,
		Uptime:   h.App.Uptime().Truncate(time.Second).String(),
		Database: "connected",
	}

	// 检查数据库连接
	if err := h.App.Dao.Ping(c.Request.Context()); err != nil {
		h.logError(c.Request.Context(), "HealthHandler.Check", err)
		response.Status = "unhealthy"
		response.Database = "error"
		c.JSON(http.StatusServiceUnavailable, pkgapp.Res{
			Code:    code.ErrorStoreUnavailable.Code(),
			Status:  false,
			Message: code.ErrorStoreUnavailable.MsgIn(pkgapp.RequestLang(c)),
			Data:    response,
		})
		return
	}

	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(response))
}

// ServerVersion 获取服务端版本信息
// @Summary 服务端版本
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.VersionInfo} "成功"
// @Router /api/version [get]
func (h *HealthHandler) ServerVersion(c *gin.Context) {
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(h.App.Version()))
}

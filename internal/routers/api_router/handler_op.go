package api_router

import (
	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dto"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// OpHandler 操作审计日志 API 路由处理器
type OpHandler struct {
	*Handler
}

// NewOpHandler 创建 OpHandler 实例
func NewOpHandler(a *app.App) *OpHandler {
	return &OpHandler{Handler: NewHandler(a)}
}

// Append 记录一条编辑操作
// @Summary 记录编辑操作
// @Tags 操作日志
// @Accept json
// @Produce json
// @Param params body dto.OpAppendRequest true "操作参数"
// @Success 200 {object} pkgapp.Res{data=dto.OpAppendResult} "成功"
// @Router /api/ops [post]
func (h *OpHandler) Append(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.OpAppendRequest{}

	if valid, errs := pkgapp.BindBodyAndValid(c, params); !valid {
		h.invalidParams(c, "OpHandler.Append", errs)
		return
	}

	res, err := h.App.OpService.Append(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "OpHandler.Append", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// List 获取房间最近的操作日志
// @Summary 操作日志列表
// @Tags 操作日志
// @Produce json
// @Param roomId query string true "房间 ID"
// @Param limit query int false "返回条数，默认 100，最大 500"
// @Success 200 {object} pkgapp.Res{data=[]dto.OpDTO} "成功"
// @Router /api/ops [get]
func (h *OpHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.OpListRequest{}

	if valid, errs := pkgapp.BindQueryAndValid(c, params); !valid {
		h.invalidParams(c, "OpHandler.List", errs)
		return
	}

	list, err := h.App.OpService.List(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "OpHandler.List", err)
		return
	}
	response.ToResponse(code.Success.WithData(list))
}

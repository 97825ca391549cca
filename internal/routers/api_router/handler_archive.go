package api_router

import (
	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dto"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// ArchiveHandler 版本归档 API 路由处理器
type ArchiveHandler struct {
	*Handler
}

// NewArchiveHandler 创建 ArchiveHandler 实例
func NewArchiveHandler(a *app.App) *ArchiveHandler {
	return &ArchiveHandler{Handler: NewHandler(a)}
}

// Room exports one room's version history to the archive storage
// @Summary 归档房间版本历史
// @Tags 归档
// @Accept json
// @Produce json
// @Param params body dto.ArchiveRoomRequest true "归档参数"
// @Success 200 {object} pkgapp.Res{data=dto.ArchiveResult} "成功"
// @Router /api/archive [post]
func (h *ArchiveHandler) Room(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ArchiveRoomRequest{}

	if valid, errs := pkgapp.BindBodyAndValid(c, params); !valid {
		h.invalidParams(c, "ArchiveHandler.Room", errs)
		return
	}

	key, err := h.App.ArchiveService.ArchiveRoom(c.Request.Context(), params.RoomID)
	if err != nil {
		h.fail(c, "ArchiveHandler.Room", err)
		return
	}
	response.ToResponse(code.Success.WithData(&dto.ArchiveResult{Rooms: 1, Keys: []string{key}}))
}

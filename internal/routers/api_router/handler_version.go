package api_router

import (
	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dto"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// VersionHandler document version API router handler
// VersionHandler 文档版本 API 路由处理器
// Uses App Container to inject dependencies
// 使用 App Container 注入依赖
type VersionHandler struct {
	*Handler
}

// NewVersionHandler creates VersionHandler instance
// NewVersionHandler 创建 VersionHandler 实例
func NewVersionHandler(a *app.App) *VersionHandler {
	return &VersionHandler{
		Handler: NewHandler(a),
	}
}

// Save stores a snapshot as the room's next version
// @Summary Save version
// @Description Accepts application/json or a text/plain beacon body; content may be an object or a serialized string
// @Tags Versions
// @Accept json,plain
// @Produce json
// @Param params body dto.VersionSaveRequest true "Save parameters"
// @Success 200 {object} pkgapp.Res{data=dto.VersionSaveResult} "Success"
// @Router /api/versions [post]
func (h *VersionHandler) Save(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.VersionSaveRequest{}

	if valid, errs := pkgapp.BindBodyAndValid(c, params); !valid {
		h.invalidParams(c, "VersionHandler.Save", errs)
		return
	}

	res, err := h.App.VersionService.Save(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "VersionHandler.Save", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Query lists a room's versions (?roomId=) or fetches one version (?versionId=)
// @Summary List versions or fetch one
// @Tags Versions
// @Produce json
// @Param roomId query string false "Room id, list summaries"
// @Param versionId query int64 false "Version id, fetch the full row"
// @Success 200 {object} pkgapp.Res{data=[]dto.VersionSummaryDTO} "Success"
// @Router /api/versions [get]
func (h *VersionHandler) Query(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.VersionQueryRequest{}

	if valid, errs := pkgapp.BindQueryAndValid(c, params); !valid {
		h.invalidParams(c, "VersionHandler.Query", errs)
		return
	}

	ctx := c.Request.Context()
	switch {
	case params.VersionID > 0:
		v, err := h.App.VersionService.Get(ctx, params.VersionID)
		if err != nil {
			h.fail(c, "VersionHandler.Get", err)
			return
		}
		response.ToResponse(code.Success.WithData(v))
	case params.RoomID != "":
		list, err := h.App.VersionService.List(ctx, params.RoomID)
		if err != nil {
			h.fail(c, "VersionHandler.List", err)
			return
		}
		response.ToResponse(code.Success.WithData(list))
	default:
		response.ToResponse(code.ErrorInvalidParams.WithDetails("roomId or versionId is required"))
	}
}

// Revert materializes an older version as the room's next version
// @Summary Revert as new version
// @Description Accepts JSON, a text body, or a form post with the JSON in field "data"
// @Tags Versions
// @Accept json,plain,x-www-form-urlencoded,mpfd
// @Produce json
// @Param params body dto.VersionRevertRequest true "Revert parameters"
// @Success 200 {object} pkgapp.Res{data=dto.VersionRevertResult} "Success"
// @Router /api/versions/revert [post]
func (h *VersionHandler) Revert(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.VersionRevertRequest{}

	if valid, errs := pkgapp.BindBodyAndValid(c, params); !valid {
		h.invalidParams(c, "VersionHandler.Revert", errs)
		return
	}

	res, err := h.App.VersionService.Revert(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "VersionHandler.Revert", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Diff compares the plain text of two versions of the same room
// @Summary Diff two versions
// @Tags Versions
// @Produce json
// @Param fromId query int64 true "Older version id"
// @Param toId query int64 true "Newer version id"
// @Success 200 {object} pkgapp.Res{data=dto.VersionDiffDTO} "Success"
// @Router /api/versions/diff [get]
func (h *VersionHandler) Diff(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.VersionDiffRequest{}

	if valid, errs := pkgapp.BindQueryAndValid(c, params); !valid {
		h.invalidParams(c, "VersionHandler.Diff", errs)
		return
	}

	res, err := h.App.VersionService.Diff(c.Request.Context(), params.FromID, params.ToID)
	if err != nil {
		h.fail(c, "VersionHandler.Diff", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Document returns the room's document metadata
// @Summary Get document
// @Tags Versions
// @Produce json
// @Param roomId query string true "Room id"
// @Success 200 {object} pkgapp.Res{data=dto.DocumentDTO} "Success"
// @Router /api/documents [get]
func (h *VersionHandler) Document(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.DocumentGetRequest{}

	if valid, errs := pkgapp.BindQueryAndValid(c, params); !valid {
		h.invalidParams(c, "VersionHandler.Document", errs)
		return
	}

	res, err := h.App.VersionService.Document(c.Request.Context(), params.RoomID)
	if err != nil {
		h.fail(c, "VersionHandler.Document", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

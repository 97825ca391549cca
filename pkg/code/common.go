package code

import "net/http"

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	ErrorServerInternal  = NewError(500, http.StatusInternalServerError, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorNotFoundAPI     = NewError(404, http.StatusNotFound, lang{en: "API not found", zh_cn: "接口不存在"})
	ErrorInvalidParams   = NewError(400, http.StatusBadRequest, lang{en: "Invalid parameters", zh_cn: "参数错误"})
	ErrorTooManyRequests = NewError(429, http.StatusTooManyRequests, lang{en: "Too many requests", zh_cn: "请求过多"})

	// Store layer
	// 存储层
	ErrorDBQuery          = NewError(1001, http.StatusInternalServerError, lang{en: "Database query failed", zh_cn: "数据库查询失败"})
	ErrorStoreUnavailable = NewError(1002, http.StatusServiceUnavailable, lang{en: "Version store not configured or unreachable", zh_cn: "版本存储未配置或不可用"})

	// Versions
	// 版本
	ErrorVersionNotFound     = NewError(2001, http.StatusNotFound, lang{en: "Version not found", zh_cn: "版本不存在"})
	ErrorVersionRoomMismatch = NewError(2002, http.StatusBadRequest, lang{en: "Version does not belong to room", zh_cn: "版本不属于该房间"})
	ErrorVersionConflict     = NewError(2003, http.StatusConflict, lang{en: "Version number conflict, please retry", zh_cn: "版本号冲突，请重试"})
	ErrorVersionContent      = NewError(2004, http.StatusBadRequest, lang{en: "Version content is not valid JSON", zh_cn: "版本内容不是有效的 JSON"})
	ErrorDocumentNotFound    = NewError(2005, http.StatusNotFound, lang{en: "Document not found", zh_cn: "文档不存在"})

	// Operation log
	// 操作日志
	ErrorOpSaveFailed = NewError(3001, http.StatusInternalServerError, lang{en: "Failed to record operation", zh_cn: "记录操作失败"})

	// Archive
	// 归档
	ErrorArchiveFailed      = NewError(4001, http.StatusInternalServerError, lang{en: "Failed to archive version history", zh_cn: "归档版本历史失败"})
	ErrorInvalidStorageType = NewError(4002, http.StatusBadRequest, lang{en: "Invalid storage type", zh_cn: "无效的存储类型"})
	ErrorArchiveDisabled    = NewError(4003, http.StatusServiceUnavailable, lang{en: "Version archive is not enabled", zh_cn: "版本归档未启用"})
)

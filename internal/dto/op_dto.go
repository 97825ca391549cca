package dto

import (
	"encoding/json"

	"github.com/haierkeys/doc-history-service/pkg/timex"
)

// OpAppendRequest 操作日志写入参数
type OpAppendRequest struct {
	RoomID    string          `json:"roomId" binding:"required,notblank"`
	UserEmail string          `json:"userEmail" binding:"required,notblank"`
	Op        json.RawMessage `json:"op" binding:"required"`
}

// OpListRequest 操作日志查询参数
type OpListRequest struct {
	RoomID string `json:"roomId" form:"roomId" binding:"required,notblank"`
	Limit  int    `json:"limit" form:"limit" binding:"gte=0"`
}

// OpDTO 操作日志
type OpDTO struct {
	ID        int64           `json:"id"`
	RoomID    string          `json:"roomId"`
	UserEmail string          `json:"userEmail"`
	Op        json.RawMessage `json:"op" copier:"-"`
	CreatedAt timex.Time      `json:"createdAt"`
}

// OpAppendResult 写入结果
type OpAppendResult struct {
	Ok bool  `json:"ok"`
	ID int64 `json:"id"`
}

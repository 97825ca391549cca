package dto

import (
	"encoding/json"

	"github.com/haierkeys/doc-history-service/pkg/timex"
)

// ArchiveVersion one version inside an archive object
// ArchiveVersion 归档对象中的一个版本
type ArchiveVersion struct {
	ID          int64           `json:"id"`
	Version     int64           `json:"version"`
	AuthorEmail string          `json:"authorEmail"`
	CreatedAt   timex.Time      `json:"createdAt"`
	Content     json.RawMessage `json:"content" copier:"-"`
}

// ArchiveDocument is the JSON object written for one room
// ArchiveDocument 为单个房间写入的 JSON 对象
type ArchiveDocument struct {
	RoomID     string            `json:"roomId"`
	Title      string            `json:"title"`
	CreatedBy  string            `json:"createdBy"`
	ArchivedAt timex.Time        `json:"archivedAt"`
	Versions   []*ArchiveVersion `json:"versions"`
}

// ArchiveRoomRequest 手动归档单个房间的请求参数
type ArchiveRoomRequest struct {
	RoomID string `json:"roomId" form:"roomId" binding:"required,notblank"`
}

// ArchiveResult 归档执行结果
type ArchiveResult struct {
	Rooms  int      `json:"rooms"`
	Keys   []string `json:"keys"`
	Failed []string `json:"failed,omitempty"`
}

package dto

import (
	"encoding/json"

	"github.com/haierkeys/doc-history-service/pkg/timex"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// VersionSaveRequest request body for saving a snapshot
// VersionSaveRequest 保存快照的请求参数
type VersionSaveRequest struct {
	RoomID      string `json:"roomId" binding:"required,notblank"`
	Title       string `json:"title"`
	AuthorEmail string `json:"authorEmail" binding:"required,notblank"`
	// Content document tree, an object or a serialized JSON string
	// Content 文档树，可以是对象或序列化后的 JSON 字符串
	Content json.RawMessage `json:"content" binding:"required"`
}

// VersionQueryRequest list by room or fetch one by id
// VersionQueryRequest 按房间列出或按 ID 获取
type VersionQueryRequest struct {
	RoomID    string `json:"roomId" form:"roomId"`
	VersionID int64  `json:"versionId" form:"versionId" binding:"gte=0"`
}

// VersionRevertRequest request body for revert-as-new-version
// VersionRevertRequest 回滚为新版本的请求参数
type VersionRevertRequest struct {
	RoomID      string `json:"roomId" binding:"required,notblank"`
	VersionID   int64  `json:"versionId" binding:"required,gt=0"`
	AuthorEmail string `json:"authorEmail" binding:"required,notblank"`
	Title       string `json:"title"`
}

// VersionDiffRequest 版本对比请求参数
type VersionDiffRequest struct {
	FromID int64 `json:"fromId" form:"fromId" binding:"required,gt=0"`
	ToID   int64 `json:"toId" form:"toId" binding:"required,gt=0"`
}

// VersionSummaryDTO version listing entry without content
// VersionSummaryDTO 不含内容的版本列表项
type VersionSummaryDTO struct {
	ID          int64      `json:"id"`
	RoomID      string     `json:"roomId"`
	Version     int64      `json:"version"`
	AuthorEmail string     `json:"authorEmail"`
	CreatedAt   timex.Time `json:"createdAt"`
}

// VersionDTO full version row
// VersionDTO 完整版本记录
type VersionDTO struct {
	ID          int64           `json:"id"`
	RoomID      string          `json:"roomId"`
	Version     int64           `json:"version"`
	AuthorEmail string          `json:"authorEmail"`
	Content     json.RawMessage `json:"content" copier:"-"`
	CreatedAt   timex.Time      `json:"createdAt"`
}

// VersionSaveResult 保存结果
type VersionSaveResult struct {
	Ok      bool  `json:"ok"`
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// VersionRevertResult 回滚结果，content 为复制的源版本内容
type VersionRevertResult struct {
	Ok      bool            `json:"ok"`
	ID      int64           `json:"id"`
	Version int64           `json:"version"`
	Content json.RawMessage `json:"content"`
}

// VersionDiffDTO plain-text diff between two versions of one room
// VersionDiffDTO 同一房间两个版本之间的纯文本差异
type VersionDiffDTO struct {
	RoomID      string                `json:"roomId"`
	FromID      int64                 `json:"fromId"`
	FromVersion int64                 `json:"fromVersion"`
	ToID        int64                 `json:"toId"`
	ToVersion   int64                 `json:"toVersion"`
	Unchanged   bool                  `json:"unchanged"`
	Diffs       []diffmatchpatch.Diff `json:"diffs"`
}

// DocumentGetRequest 文档查询参数
type DocumentGetRequest struct {
	RoomID string `json:"roomId" form:"roomId" binding:"required,notblank"`
}

// DocumentDTO document metadata with its current version count
// DocumentDTO 文档元数据及当前版本信息
type DocumentDTO struct {
	RoomID        string     `json:"roomId"`
	Title         string     `json:"title"`
	CreatedBy     string     `json:"createdBy"`
	LatestVersion int64      `json:"latestVersion" copier:"-"`
	VersionCount  int64      `json:"versionCount" copier:"-"`
	CreatedAt     timex.Time `json:"createdAt"`
	UpdatedAt     timex.Time `json:"updatedAt"`
}

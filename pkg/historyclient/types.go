package historyclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// VersionSummary is a listing entry; it carries no content
// VersionSummary 版本列表项，不含内容
type VersionSummary struct {
	ID          int64     `json:"id"`
	RoomID      string    `json:"roomId"`
	Version     int64     `json:"version"`
	AuthorEmail string    `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Version 完整版本记录
type Version struct {
	VersionSummary
	Content json.RawMessage `json:"content"`
}

// SaveRequest 保存版本参数，Content 为序列化的文档树
type SaveRequest struct {
	RoomID      string          `json:"roomId"`
	Title       string          `json:"title,omitempty"`
	AuthorEmail string          `json:"authorEmail"`
	Content     json.RawMessage `json:"content"`
}

// SaveResult 保存结果
type SaveResult struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// RevertRequest 回滚参数
type RevertRequest struct {
	RoomID      string `json:"roomId"`
	VersionID   int64  `json:"versionId"`
	AuthorEmail string `json:"authorEmail"`
	Title       string `json:"title,omitempty"`
}

// RevertResult 回滚结果，Content 为被复制的源版本内容
type RevertResult struct {
	ID      int64           `json:"id"`
	Version int64           `json:"version"`
	Content json.RawMessage `json:"content"`
}

// DiffResult 两个版本纯文本的差异
type DiffResult struct {
	RoomID      string                `json:"roomId"`
	FromID      int64                 `json:"fromId"`
	FromVersion int64                 `json:"fromVersion"`
	ToID        int64                 `json:"toId"`
	ToVersion   int64                 `json:"toVersion"`
	Unchanged   bool                  `json:"unchanged"`
	Diffs       []diffmatchpatch.Diff `json:"diffs"`
}

// Document 文档元数据
type Document struct {
	RoomID        string    `json:"roomId"`
	Title         string    `json:"title"`
	CreatedBy     string    `json:"createdBy"`
	LatestVersion int64     `json:"latestVersion"`
	VersionCount  int64     `json:"versionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store is the version store as seen by editor sessions
// Store 编辑器会话所使用的版本存储
type Store interface {
	// SaveVersion appends a snapshot as the room's next version
	// SaveVersion 将快照追加为房间的下一个版本
	SaveVersion(ctx context.Context, req SaveRequest) (*SaveResult, error)

	// SaveVersionBeacon sends the snapshot without waiting for or reporting the result
	// SaveVersionBeacon 发送快照，不等待也不报告结果
	SaveVersionBeacon(req SaveRequest)

	// ListVersions returns the room's versions, most recent first
	// ListVersions 返回房间的版本列表，最新的在前
	ListVersions(ctx context.Context, roomID string) ([]VersionSummary, error)

	// GetVersion 获取完整版本
	GetVersion(ctx context.Context, versionID int64) (*Version, error)

	// Revert 将旧版本复制为新版本
	Revert(ctx context.Context, req RevertRequest) (*RevertResult, error)
}

var _ Store = (*Client)(nil)

// Package domain 定义领域模型和接口
package domain

import (
	"context"
	"time"
)

// DocumentRepository 文档元数据仓储接口
type DocumentRepository interface {
	// GetByRoomID 根据房间ID获取文档
	GetByRoomID(ctx context.Context, roomID string) (*Document, error)

	// ListUpdatedSince returns documents updated at or after since, oldest update first
	// ListUpdatedSince 获取在 since 及之后更新的文档，按更新时间正序
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*Document, error)
}

// VersionRepository 版本仓储接口
type VersionRepository interface {
	// Append upserts the room's document and inserts the next version number.
	// Calls for the same room are serialized.
	// Append 更新房间文档并写入下一个版本号，同一房间的调用串行执行
	Append(ctx context.Context, params *AppendVersion) (*Version, error)

	// GetByID 根据ID获取完整版本
	GetByID(ctx context.Context, id int64) (*Version, error)

	// ListByRoomID returns summaries, created_at desc then version desc
	// ListByRoomID 获取版本摘要，按创建时间倒序、版本号倒序
	ListByRoomID(ctx context.Context, roomID string) ([]*VersionSummary, error)

	// MaxVersion 获取房间当前最大版本号，没有版本时为 0
	MaxVersion(ctx context.Context, roomID string) (int64, error)

	// ListContentByRoomID returns full versions in ascending version order
	// ListContentByRoomID 获取房间的完整版本，按版本号正序
	ListContentByRoomID(ctx context.Context, roomID string) ([]*Version, error)

	// CountByRoomID 获取房间版本数量
	CountByRoomID(ctx context.Context, roomID string) (int64, error)
}

// OpRepository 操作日志仓储接口
type OpRepository interface {
	// Create 写入操作日志
	Create(ctx context.Context, entry *OpLogEntry) (*OpLogEntry, error)

	// ListByRoomID 获取房间最近的操作日志，按创建时间倒序
	ListByRoomID(ctx context.Context, roomID string, limit int) ([]*OpLogEntry, error)

	// DeleteBefore 删除早于指定时间的操作日志
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Package domain 定义领域模型和接口
package domain

import "time"

// DefaultTitle is used when a save or revert carries no title
// DefaultTitle 保存或回滚未携带标题时使用的默认标题
const DefaultTitle = "Untitled"

// Document 文档元数据领域模型，每个房间一条
type Document struct {
	ID        int64
	RoomID    string
	Title     string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

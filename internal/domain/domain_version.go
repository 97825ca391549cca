package domain

import "time"

// Version is one immutable snapshot of a room's document
// Version 房间文档的一条不可变快照
type Version struct {
	ID          int64
	RoomID      string
	Version     int64
	AuthorEmail string
	// Content serialized document tree, stored verbatim
	// Content 序列化后的文档树，原样存储
	Content   string
	CreatedAt time.Time
}

// VersionSummary 版本摘要，不含内容
type VersionSummary struct {
	ID          int64
	RoomID      string
	Version     int64
	AuthorEmail string
	CreatedAt   time.Time
}

// Summary drops the content
// Summary 去掉内容生成摘要
func (v *Version) Summary() *VersionSummary {
	if v == nil {
		return nil
	}
	return &VersionSummary{
		ID:          v.ID,
		RoomID:      v.RoomID,
		Version:     v.Version,
		AuthorEmail: v.AuthorEmail,
		CreatedAt:   v.CreatedAt,
	}
}

// AppendVersion describes a new version row; number, id and time are assigned by the store
// AppendVersion 描述待写入的新版本，编号、ID 和时间由存储分配
type AppendVersion struct {
	RoomID      string
	Title       string
	AuthorEmail string
	Content     string
}

package model

import "github.com/haierkeys/doc-history-service/pkg/timex"

const TableNameDocumentVersion = "document_versions"

// DocumentVersion mapped from table <document_versions>
type DocumentVersion struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	RoomID      string     `gorm:"column:room_id;size:191;not null;uniqueIndex:idx_document_versions_room_version,priority:1;index:idx_document_versions_room_created,priority:1" json:"roomId" form:"roomId"`
	Version     int64      `gorm:"column:version;not null;uniqueIndex:idx_document_versions_room_version,priority:2" json:"version" form:"version"`
	AuthorEmail string     `gorm:"column:author_email;size:255;not null" json:"authorEmail" form:"authorEmail"`
	ContentJSON string     `gorm:"column:content_json;type:text;not null" json:"contentJson" form:"contentJson"`
	CreatedAt   timex.Time `gorm:"column:created_at;autoCreateTime:false;index:idx_document_versions_room_created,priority:2" json:"createdAt" form:"createdAt"`
}

// TableName DocumentVersion's table name
func (*DocumentVersion) TableName() string {
	return TableNameDocumentVersion
}

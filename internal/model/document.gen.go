package model

import "github.com/haierkeys/doc-history-service/pkg/timex"

const TableNameDocument = "documents"

// Document mapped from table <documents>
type Document struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	RoomID    string     `gorm:"column:room_id;size:191;not null;uniqueIndex:idx_documents_room_id" json:"roomId" form:"roomId"`
	Title     string     `gorm:"column:title;size:255;not null;default:Untitled" json:"title" form:"title"`
	CreatedBy string     `gorm:"column:created_by;size:255" json:"createdBy" form:"createdBy"`
	CreatedAt timex.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt timex.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Document's table name
func (*Document) TableName() string {
	return TableNameDocument
}

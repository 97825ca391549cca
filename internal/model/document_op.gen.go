package model

import "github.com/haierkeys/doc-history-service/pkg/timex"

const TableNameDocumentOp = "document_ops"

// DocumentOp mapped from table <document_ops>
type DocumentOp struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	RoomID    string     `gorm:"column:room_id;size:191;not null;index:idx_document_ops_room_created,priority:1" json:"roomId" form:"roomId"`
	UserEmail string     `gorm:"column:user_email;size:255;not null" json:"userEmail" form:"userEmail"`
	OpJSON    string     `gorm:"column:op_json;type:text;not null" json:"opJson" form:"opJson"`
	CreatedAt timex.Time `gorm:"column:created_at;autoCreateTime:false;index:idx_document_ops_room_created,priority:2;index:idx_document_ops_created" json:"createdAt" form:"createdAt"`
}

// TableName DocumentOp's table name
func (*DocumentOp) TableName() string {
	return TableNameDocumentOp
}

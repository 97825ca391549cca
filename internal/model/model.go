package model

import (
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables behind the version store
// AutoMigrate 创建或更新版本存储使用的表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{}, &DocumentVersion{}, &DocumentOp{})
}

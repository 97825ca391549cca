package dao

import (
	"context"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/model"
	"github.com/haierkeys/doc-history-service/pkg/timex"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRepository 实现 domain.DocumentRepository 接口
type documentRepository struct {
	dao *Dao
}

// NewDocumentRepository 创建 DocumentRepository 实例
func NewDocumentRepository(dao *Dao) domain.DocumentRepository {
	return &documentRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *documentRepository) toDomain(m *model.Document) *domain.Document {
	if m == nil {
		return nil
	}
	return &domain.Document{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Title:     m.Title,
		CreatedBy: m.CreatedBy,
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
}

// GetByRoomID 根据房间ID获取文档
func (r *documentRepository) GetByRoomID(ctx context.Context, roomID string) (*domain.Document, error) {
	var m model.Document
	if err := r.dao.Db.WithContext(ctx).Where("room_id = ?", roomID).Take(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// ListUpdatedSince 获取在 since 及之后更新的文档，since 为零值时返回全部
func (r *documentRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]*domain.Document, error) {
	var rows []*model.Document
	q := r.dao.Db.WithContext(ctx)
	if !since.IsZero() {
		q = q.Where("updated_at >= ?", timex.Time(since))
	}
	err := q.Order("updated_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Document, 0, len(rows))
	for _, m := range rows {
		list = append(list, r.toDomain(m))
	}
	return list, nil
}

// upsertDocument inserts the room's document or refreshes it; created_by is never overwritten
// upsertDocument 插入或刷新房间文档，created_by 不会被覆盖
func upsertDocument(tx *gorm.DB, roomID, title, author string, now timex.Time) error {
	m := &model.Document{
		RoomID:    roomID,
		Title:     title,
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.Title == "" {
		m.Title = domain.DefaultTitle
	}

	updates := []string{"updated_at"}
	if title != "" {
		updates = append(updates, "title")
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(m).Error
}

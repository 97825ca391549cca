package dao

import (
	"context"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/model"
	"github.com/haierkeys/doc-history-service/pkg/timex"
)

// opRepository 实现 domain.OpRepository 接口
type opRepository struct {
	dao *Dao
}

// NewOpRepository 创建 OpRepository 实例
func NewOpRepository(dao *Dao) domain.OpRepository {
	return &opRepository{dao: dao}
}

func (r *opRepository) toDomain(m *model.DocumentOp) *domain.OpLogEntry {
	if m == nil {
		return nil
	}
	return &domain.OpLogEntry{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserEmail: m.UserEmail,
		Op:        m.OpJSON,
		CreatedAt: time.Time(m.CreatedAt),
	}
}

// Create 写入操作日志；审计写入不经过房间写队列
func (r *opRepository) Create(ctx context.Context, entry *domain.OpLogEntry) (*domain.OpLogEntry, error) {
	m := &model.DocumentOp{
		RoomID:    entry.RoomID,
		UserEmail: entry.UserEmail,
		OpJSON:    entry.Op,
		CreatedAt: timex.Now(),
	}
	if err := r.dao.Db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// ListByRoomID 获取房间最近的操作日志
func (r *opRepository) ListByRoomID(ctx context.Context, roomID string, limit int) ([]*domain.OpLogEntry, error) {
	var rows []*model.DocumentOp
	err := r.dao.Db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]*domain.OpLogEntry, 0, len(rows))
	for _, m := range rows {
		list = append(list, r.toDomain(m))
	}
	return list, nil
}

// DeleteBefore 删除早于指定时间的操作日志
func (r *opRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.dao.Db.WithContext(ctx).
		Where("created_at < ?", timex.Time(before)).
		Delete(&model.DocumentOp{})
	return res.RowsAffected, res.Error
}

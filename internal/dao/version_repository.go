package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/model"
	"github.com/haierkeys/doc-history-service/pkg/logger"
	"github.com/haierkeys/doc-history-service/pkg/timex"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when every insert attempt found its version number taken
// ErrVersionConflict 所有插入尝试的版本号均被占用时返回
var ErrVersionConflict = errors.New("version number conflict")

// versionRepository 实现 domain.VersionRepository 接口
type versionRepository struct {
	dao *Dao
}

// NewVersionRepository 创建 VersionRepository 实例
func NewVersionRepository(dao *Dao) domain.VersionRepository {
	return &versionRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *versionRepository) toDomain(m *model.DocumentVersion) *domain.Version {
	if m == nil {
		return nil
	}
	return &domain.Version{
		ID:          m.ID,
		RoomID:      m.RoomID,
		Version:     m.Version,
		AuthorEmail: m.AuthorEmail,
		Content:     m.ContentJSON,
		CreatedAt:   time.Time(m.CreatedAt),
	}
}

// Append numbers and inserts a version.
// Within one process the room's write queue makes read-max-then-insert exclusive;
// across processes the (room_id, version) unique index rejects a taken number and
// the whole transaction is retried.
// Append 为版本编号并写入。
// 进程内依靠房间写队列保证“读取最大值再插入”互斥；
// 多进程之间由 (room_id, version) 唯一索引拒绝重复编号，并整体重试事务。
func (r *versionRepository) Append(ctx context.Context, p *domain.AppendVersion) (*domain.Version, error) {
	var result *domain.Version

	err := r.dao.ExecuteWrite(ctx, p.RoomID, func(db *gorm.DB) error {
		var lastErr error
		for attempt := 1; attempt <= r.dao.insertRetries; attempt++ {
			v, err := r.appendOnce(ctx, db, p)
			if err == nil {
				result = v
				return nil
			}
			if !IsDuplicateKey(err) {
				return err
			}
			lastErr = err
			r.dao.Logger().Warn("version number taken, retrying",
				zap.String(logger.FieldRoomID, p.RoomID),
				zap.Int(logger.FieldAttempt, attempt),
				zap.String(logger.FieldMethod, "versionRepository.Append"),
				zap.Error(err),
			)
			if r.dao.onRetry != nil {
				r.dao.onRetry(p.RoomID, attempt)
			}
		}
		return fmt.Errorf("%w: %v", ErrVersionConflict, lastErr)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *versionRepository) appendOnce(ctx context.Context, db *gorm.DB, p *domain.AppendVersion) (*domain.Version, error) {
	var m *model.DocumentVersion

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := timex.Now()
		if err := upsertDocument(tx, p.RoomID, p.Title, p.AuthorEmail, now); err != nil {
			return err
		}

		var maxVersion int64
		if err := tx.Model(&model.DocumentVersion{}).
			Where("room_id = ?", p.RoomID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}

		m = &model.DocumentVersion{
			RoomID:      p.RoomID,
			Version:     maxVersion + 1,
			AuthorEmail: p.AuthorEmail,
			ContentJSON: p.Content,
			CreatedAt:   now,
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// GetByID 根据ID获取完整版本
func (r *versionRepository) GetByID(ctx context.Context, id int64) (*domain.Version, error) {
	var m model.DocumentVersion
	if err := r.dao.Db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// ListByRoomID 获取版本摘要，按创建时间倒序、版本号倒序
func (r *versionRepository) ListByRoomID(ctx context.Context, roomID string) ([]*domain.VersionSummary, error) {
	var rows []*model.DocumentVersion
	err := r.dao.Db.WithContext(ctx).
		Select("id", "room_id", "version", "author_email", "created_at").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("version DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := make([]*domain.VersionSummary, 0, len(rows))
	for _, m := range rows {
		list = append(list, r.toDomain(m).Summary())
	}
	return list, nil
}

// ListContentByRoomID 获取房间的完整版本，按版本号正序
func (r *versionRepository) ListContentByRoomID(ctx context.Context, roomID string) ([]*domain.Version, error) {
	var rows []*model.DocumentVersion
	err := r.dao.Db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Version, 0, len(rows))
	for _, m := range rows {
		list = append(list, r.toDomain(m))
	}
	return list, nil
}

// MaxVersion 获取房间当前最大版本号
func (r *versionRepository) MaxVersion(ctx context.Context, roomID string) (int64, error) {
	var maxVersion int64
	err := r.dao.Db.WithContext(ctx).Model(&model.DocumentVersion{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	return maxVersion, err
}

// CountByRoomID 获取房间版本数量
func (r *versionRepository) CountByRoomID(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.dao.Db.WithContext(ctx).Model(&model.DocumentVersion{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

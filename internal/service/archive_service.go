package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/dto"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/logger"
	"github.com/haierkeys/doc-history-service/pkg/storage"
	"github.com/haierkeys/doc-history-service/pkg/timex"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// archiveKeyLayout timestamp part of an archive object key
// archiveKeyLayout 归档对象键中的时间戳格式
const archiveKeyLayout = "20060102T150405Z"

// ArchiveService exports version history to a storage backend
// ArchiveService 将版本历史导出到存储后端
type ArchiveService interface {
	// ArchiveSince exports every room whose document was updated at or after since
	// ArchiveSince 导出自 since 起有更新的所有房间
	ArchiveSince(ctx context.Context, since time.Time) (*dto.ArchiveResult, error)

	// ArchiveRoom exports one room and returns the stored key
	// ArchiveRoom 导出单个房间并返回存储键
	ArchiveRoom(ctx context.Context, roomID string) (string, error)
}

type archiveService struct {
	versionRepo  domain.VersionRepository
	documentRepo domain.DocumentRepository
	store        storage.Storager
	prefix       string
	logger       *zap.Logger
	now          func() time.Time
}

// NewArchiveService creates ArchiveService; a nil store makes every call return ErrorArchiveDisabled
// NewArchiveService 创建 ArchiveService，store 为 nil 时所有调用返回 ErrorArchiveDisabled
func NewArchiveService(versionRepo domain.VersionRepository, documentRepo domain.DocumentRepository, store storage.Storager, prefix string, lg *zap.Logger) ArchiveService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &archiveService{
		versionRepo:  versionRepo,
		documentRepo: documentRepo,
		store:        store,
		prefix:       strings.Trim(prefix, "/"),
		logger:       lg,
		now:          time.Now,
	}
}

func (s *archiveService) ArchiveSince(ctx context.Context, since time.Time) (*dto.ArchiveResult, error) {
	if s.store == nil {
		return nil, countError("ArchiveSince", code.ErrorArchiveDisabled)
	}
	docs, err := s.documentRepo.ListUpdatedSince(ctx, since)
	if err != nil {
		return nil, countError("ArchiveSince", storeError(err, code.ErrorDBQuery))
	}

	res := &dto.ArchiveResult{Keys: []string{}}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, countError("ArchiveSince", code.ErrorArchiveFailed.WithDetails(err.Error()))
		}
		key, err := s.archive(ctx, doc)
		if err != nil {
			// one broken room does not stop the run
			s.logger.Warn("archive room failed",
				zap.String(logger.FieldRoomID, doc.RoomID),
				zap.Error(err))
			res.Failed = append(res.Failed, doc.RoomID)
			continue
		}
		res.Rooms++
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

func (s *archiveService) ArchiveRoom(ctx context.Context, roomID string) (string, error) {
	if s.store == nil {
		return "", countError("ArchiveRoom", code.ErrorArchiveDisabled)
	}
	if err := requireFields("roomId", roomID); err != nil {
		return "", countError("ArchiveRoom", err)
	}
	doc, err := s.documentRepo.GetByRoomID(ctx, strings.TrimSpace(roomID))
	if err != nil {
		return "", countError("ArchiveRoom", storeError(err, code.ErrorDocumentNotFound))
	}
	key, err := s.archive(ctx, doc)
	if err != nil {
		return "", countError("ArchiveRoom", err)
	}
	return key, nil
}

func (s *archiveService) archive(ctx context.Context, doc *domain.Document) (string, error) {
	versions, err := s.versionRepo.ListContentByRoomID(ctx, doc.RoomID)
	if err != nil {
		return "", storeError(err, code.ErrorDBQuery)
	}

	now := s.now()
	out := &dto.ArchiveDocument{
		RoomID:     doc.RoomID,
		Title:      doc.Title,
		CreatedBy:  doc.CreatedBy,
		ArchivedAt: timex.Time(now),
		Versions:   make([]*dto.ArchiveVersion, 0, len(versions)),
	}
	for _, v := range versions {
		out.Versions = append(out.Versions, &dto.ArchiveVersion{
			ID:          v.ID,
			Version:     v.Version,
			AuthorEmail: v.AuthorEmail,
			CreatedAt:   timex.Time(v.CreatedAt),
			Content:     archiveContent(v.Content),
		})
	}

	body, err := sonic.Marshal(out)
	if err != nil {
		return "", code.ErrorArchiveFailed.WithDetails(err.Error())
	}

	key, err := s.store.Put(ctx, s.objectKey(doc.RoomID, now), body, "application/json")
	if err != nil {
		return "", code.ErrorArchiveFailed.WithDetails(err.Error())
	}

	archivesWritten.Inc()
	s.logger.Info("room archived",
		zap.String(logger.FieldRoomID, doc.RoomID),
		zap.Int(logger.FieldCount, len(versions)),
		zap.String("key", key))
	return key, nil
}

// objectKey builds <prefix>/<escaped room id>/<utc timestamp>.json
// objectKey 生成 <前缀>/<转义后的房间 ID>/<UTC 时间戳>.json
func (s *archiveService) objectKey(roomID string, at time.Time) string {
	name := url.PathEscape(roomID) + "/" + at.UTC().Format(archiveKeyLayout) + ".json"
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// archiveContent keeps valid JSON as-is and wraps anything else as a JSON string
// archiveContent 有效 JSON 原样保留，其他内容包装为 JSON 字符串
func archiveContent(content string) json.RawMessage {
	if sonic.Valid([]byte(content)) {
		return json.RawMessage(content)
	}
	quoted, _ := sonic.Marshal(content)
	return quoted
}

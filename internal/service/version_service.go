package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/dto"
	"github.com/haierkeys/doc-history-service/internal/notify"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/content"
	"github.com/haierkeys/doc-history-service/pkg/logger"
	"github.com/haierkeys/doc-history-service/pkg/workerpool"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// publishTimeout bounds an inline event publish when the worker pool refuses the task
// publishTimeout 工作池拒绝任务时，同步发布事件的超时时间
const publishTimeout = 3 * time.Second

// VersionService defines the document version business service interface
// VersionService 定义文档版本业务服务接口
type VersionService interface {
	// Save appends a snapshot as the room's next version
	// Save 将快照保存为房间的下一个版本
	Save(ctx context.Context, params *dto.VersionSaveRequest) (*dto.VersionSaveResult, error)

	// List returns the room's version summaries, most recent first
	// List 获取房间的版本摘要，最新的在前
	List(ctx context.Context, roomID string) ([]*dto.VersionSummaryDTO, error)

	// Get returns one full version including content
	// Get 获取包含内容的完整版本
	Get(ctx context.Context, versionID int64) (*dto.VersionDTO, error)

	// Revert copies an existing version of the same room into a new version
	// Revert 将同一房间的已有版本复制为新版本
	Revert(ctx context.Context, params *dto.VersionRevertRequest) (*dto.VersionRevertResult, error)

	// Diff compares the plain-text signatures of two versions of one room
	// Diff 对比同一房间两个版本的纯文本签名
	Diff(ctx context.Context, fromID, toID int64) (*dto.VersionDiffDTO, error)

	// Document 获取房间文档元数据
	Document(ctx context.Context, roomID string) (*dto.DocumentDTO, error)
}

// versionService implementation of VersionService interface
// versionService 实现 VersionService 接口
type versionService struct {
	versionRepo  domain.VersionRepository  // Version repository // 版本仓库
	documentRepo domain.DocumentRepository // Document repository // 文档仓库
	hub          notify.Hub                // Room event hub // 房间事件中心
	pool         *workerpool.Pool          // Background publish pool // 后台发布工作池
	sf           *singleflight.Group       // Singleflight group // 并发请求合并组
	logger       *zap.Logger               // Logger // 日志对象
	config       *AppServiceConfig         // Service configuration // 服务配置
}

// NewVersionService creates VersionService instance; hub and pool may be nil
// NewVersionService 创建 VersionService 实例，hub 与 pool 可为 nil
func NewVersionService(versionRepo domain.VersionRepository, documentRepo domain.DocumentRepository, hub notify.Hub, pool *workerpool.Pool, lg *zap.Logger, config *ServiceConfig) VersionService {
	if lg == nil {
		lg = zap.NewNop()
	}
	cfg := &AppServiceConfig{}
	if config != nil {
		cfg = &config.App
	}
	return &versionService{
		versionRepo:  versionRepo,
		documentRepo: documentRepo,
		hub:          hub,
		pool:         pool,
		sf:           &singleflight.Group{},
		logger:       lg,
		config:       cfg,
	}
}

func (s *versionService) Save(ctx context.Context, params *dto.VersionSaveRequest) (*dto.VersionSaveResult, error) {
	if params == nil {
		return nil, countError("Save", code.ErrorInvalidParams.WithDetails("request body is required"))
	}
	if err := requireFields("roomId", params.RoomID, "authorEmail", params.AuthorEmail); err != nil {
		return nil, countError("Save", err)
	}
	if len(params.Content) == 0 {
		return nil, countError("Save", code.ErrorInvalidParams.WithDetails("content is required"))
	}
	doc, ok := content.Normalize(params.Content)
	if !ok {
		return nil, countError("Save", code.ErrorVersionContent)
	}

	v, err := s.versionRepo.Append(ctx, &domain.AppendVersion{
		RoomID:      strings.TrimSpace(params.RoomID),
		Title:       strings.TrimSpace(params.Title),
		AuthorEmail: strings.TrimSpace(params.AuthorEmail),
		Content:     string(doc),
	})
	if err != nil {
		s.logger.Warn("version save failed",
			zap.String(logger.FieldRoomID, params.RoomID),
			zap.Error(err))
		return nil, countError("Save", storeError(err, code.ErrorVersionNotFound))
	}

	versionsWritten.WithLabelValues("save").Inc()
	s.logger.Debug("version saved",
		zap.String(logger.FieldRoomID, v.RoomID),
		zap.Int64(logger.FieldVersionID, v.ID),
		zap.Int64(logger.FieldVersion, v.Version))
	s.publish(v)

	return &dto.VersionSaveResult{Ok: true, ID: v.ID, Version: v.Version}, nil
}

func (s *versionService) List(ctx context.Context, roomID string) ([]*dto.VersionSummaryDTO, error) {
	if err := requireFields("roomId", roomID); err != nil {
		return nil, countError("List", err)
	}
	summaries, err := s.versionRepo.ListByRoomID(ctx, strings.TrimSpace(roomID))
	if err != nil {
		return nil, countError("List", storeError(err, code.ErrorVersionNotFound))
	}

	out := make([]*dto.VersionSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		item := &dto.VersionSummaryDTO{}
		if err := dto.Copy(item, summary); err != nil {
			return nil, countError("List", code.ErrorServerInternal.WithDetails(err.Error()))
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *versionService) Get(ctx context.Context, versionID int64) (*dto.VersionDTO, error) {
	if versionID <= 0 {
		return nil, countError("Get", code.ErrorInvalidParams.WithDetails("versionId is required"))
	}
	key := strconv.FormatInt(versionID, 10)
	r, err, _ := s.sf.Do(key, func() (any, error) {
		v, err := s.versionRepo.GetByID(ctx, versionID)
		if err != nil {
			return nil, storeError(err, code.ErrorVersionNotFound)
		}
		return s.versionToDTO(v)
	})
	if err != nil {
		return nil, countError("Get", err)
	}
	return r.(*dto.VersionDTO), nil
}

// Revert checks ownership before anything is written: a source version from
// another room is rejected and the store is left untouched.
// Revert 在写入之前校验归属，来自其他房间的源版本直接拒绝，存储保持不变
func (s *versionService) Revert(ctx context.Context, params *dto.VersionRevertRequest) (*dto.VersionRevertResult, error) {
	if params == nil {
		return nil, countError("Revert", code.ErrorInvalidParams.WithDetails("request body is required"))
	}
	if err := requireFields("roomId", params.RoomID, "authorEmail", params.AuthorEmail); err != nil {
		return nil, countError("Revert", err)
	}
	if params.VersionID <= 0 {
		return nil, countError("Revert", code.ErrorInvalidParams.WithDetails("versionId is required"))
	}
	roomID := strings.TrimSpace(params.RoomID)

	source, err := s.versionRepo.GetByID(ctx, params.VersionID)
	if err != nil {
		return nil, countError("Revert", storeError(err, code.ErrorVersionNotFound))
	}
	if source.RoomID != roomID {
		s.logger.Warn("revert rejected, version belongs to another room",
			zap.String(logger.FieldRoomID, roomID),
			zap.Int64(logger.FieldVersionID, source.ID),
			zap.String("versionRoomId", source.RoomID))
		return nil, countError("Revert", code.ErrorVersionRoomMismatch)
	}

	v, err := s.versionRepo.Append(ctx, &domain.AppendVersion{
		RoomID:      roomID,
		Title:       strings.TrimSpace(params.Title),
		AuthorEmail: strings.TrimSpace(params.AuthorEmail),
		Content:     source.Content,
	})
	if err != nil {
		return nil, countError("Revert", storeError(err, code.ErrorVersionNotFound))
	}

	versionsWritten.WithLabelValues("revert").Inc()
	s.logger.Info("version reverted",
		zap.String(logger.FieldRoomID, roomID),
		zap.Int64("sourceVersion", source.Version),
		zap.Int64(logger.FieldVersion, v.Version),
		zap.String(logger.FieldAuthor, v.AuthorEmail))
	s.publish(v)

	return &dto.VersionRevertResult{
		Ok:      true,
		ID:      v.ID,
		Version: v.Version,
		Content: json.RawMessage(source.Content),
	}, nil
}

func (s *versionService) Diff(ctx context.Context, fromID, toID int64) (*dto.VersionDiffDTO, error) {
	from, err := s.Get(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.Get(ctx, toID)
	if err != nil {
		return nil, err
	}
	if from.RoomID != to.RoomID {
		return nil, countError("Diff", code.ErrorVersionRoomMismatch)
	}

	fromText := content.Signature(from.Content)
	toText := content.Signature(to.Content)

	return &dto.VersionDiffDTO{
		RoomID:      from.RoomID,
		FromID:      from.ID,
		FromVersion: from.Version,
		ToID:        to.ID,
		ToVersion:   to.Version,
		Unchanged:   fromText == toText,
		Diffs:       s.diffTexts(fromText, toText),
	}, nil
}

// diffTexts 计算纯文本差异，diffmatchpatch panic 时返回空结果
func (s *versionService) diffTexts(from, to string) (diffs []diffmatchpatch.Diff) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in diffTexts", zap.Any("panic", r))
			diffs = []diffmatchpatch.Diff{}
		}
	}()
	dmp := diffmatchpatch.New()
	diffs = dmp.DiffMain(from, to, false)
	return dmp.DiffCleanupSemantic(diffs)
}

func (s *versionService) Document(ctx context.Context, roomID string) (*dto.DocumentDTO, error) {
	if err := requireFields("roomId", roomID); err != nil {
		return nil, countError("Document", err)
	}
	roomID = strings.TrimSpace(roomID)

	doc, err := s.documentRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, countError("Document", storeError(err, code.ErrorDocumentNotFound))
	}
	latest, err := s.versionRepo.MaxVersion(ctx, roomID)
	if err != nil {
		return nil, countError("Document", storeError(err, code.ErrorDocumentNotFound))
	}
	count, err := s.versionRepo.CountByRoomID(ctx, roomID)
	if err != nil {
		return nil, countError("Document", storeError(err, code.ErrorDocumentNotFound))
	}

	out := &dto.DocumentDTO{LatestVersion: latest, VersionCount: count}
	if err := dto.Copy(out, doc); err != nil {
		return nil, countError("Document", code.ErrorServerInternal.WithDetails(err.Error()))
	}
	return out, nil
}

func (s *versionService) versionToDTO(v *domain.Version) (*dto.VersionDTO, error) {
	out := &dto.VersionDTO{Content: json.RawMessage(v.Content)}
	if err := dto.Copy(out, v); err != nil {
		return nil, code.ErrorServerInternal.WithDetails(err.Error())
	}
	return out, nil
}

// publish emits "versions changed" off the request path
// publish 在请求路径之外发布版本变更事件
func (s *versionService) publish(v *domain.Version) {
	if s.hub == nil {
		return
	}
	ev := notify.Event{
		Type:        notify.EventVersionsChanged,
		RoomID:      v.RoomID,
		Version:     v.Version,
		AuthorEmail: v.AuthorEmail,
		At:          time.Now(),
	}
	task := func(ctx context.Context) error {
		return s.hub.Publish(ctx, ev)
	}

	if s.pool != nil {
		err := s.pool.SubmitAsync(context.Background(), "notify.versionsChanged", task)
		if err == nil {
			return
		}
		s.logger.Warn("worker pool rejected publish, sending inline",
			zap.String(logger.FieldRoomID, v.RoomID),
			zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := task(ctx); err != nil {
		s.logger.Warn("publish versions changed failed",
			zap.String(logger.FieldRoomID, v.RoomID),
			zap.Error(err))
	}
}

// requireFields takes name/value pairs and reports every blank one
// requireFields 接收字段名/值对，返回所有为空字段的参数错误
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i]+" is required")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return code.ErrorInvalidParams.WithDetails(missing...)
}

package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"
	"github.com/haierkeys/doc-history-service/internal/dto"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/logger"
	"github.com/haierkeys/doc-history-service/pkg/util"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// OpService defines the operation audit log service interface
// OpService 定义操作审计日志服务接口
type OpService interface {
	// Append records one raw edit operation; callers treat failure as non-fatal
	// Append 记录一条原始编辑操作，调用方可忽略失败
	Append(ctx context.Context, params *dto.OpAppendRequest) (*dto.OpAppendResult, error)

	// List 获取房间最近的操作日志
	List(ctx context.Context, params *dto.OpListRequest) ([]*dto.OpDTO, error)

	// CleanupBefore deletes entries older than the cutoff
	// CleanupBefore 删除早于截止时间的操作日志
	CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RetentionCutoff returns the cutoff for the configured retention; ok is false when retention is disabled
	// RetentionCutoff 根据配置的保留时间计算截止时间，未启用时 ok 为 false
	RetentionCutoff(now time.Time) (cutoff time.Time, ok bool, err error)
}

type opService struct {
	opRepo domain.OpRepository
	logger *zap.Logger
	config *AppServiceConfig
}

// NewOpService 创建 OpService 实例
func NewOpService(opRepo domain.OpRepository, lg *zap.Logger, config *ServiceConfig) OpService {
	if lg == nil {
		lg = zap.NewNop()
	}
	cfg := &AppServiceConfig{}
	if config != nil {
		cfg = &config.App
	}
	return &opService{opRepo: opRepo, logger: lg, config: cfg}
}

func (s *opService) Append(ctx context.Context, params *dto.OpAppendRequest) (*dto.OpAppendResult, error) {
	if params == nil {
		return nil, countError("AppendOp", code.ErrorInvalidParams.WithDetails("request body is required"))
	}
	if err := requireFields("roomId", params.RoomID, "userEmail", params.UserEmail); err != nil {
		return nil, countError("AppendOp", err)
	}
	op := strings.TrimSpace(string(params.Op))
	if op == "" || !sonic.Valid([]byte(op)) {
		return nil, countError("AppendOp", code.ErrorInvalidParams.WithDetails("op must be valid JSON"))
	}

	entry, err := s.opRepo.Create(ctx, &domain.OpLogEntry{
		RoomID:    strings.TrimSpace(params.RoomID),
		UserEmail: strings.TrimSpace(params.UserEmail),
		Op:        op,
	})
	if err != nil {
		s.logger.Warn("op append failed",
			zap.String(logger.FieldRoomID, params.RoomID),
			zap.Error(err))
		return nil, countError("AppendOp", storeError(err, code.ErrorOpSaveFailed))
	}

	opsWritten.Inc()
	return &dto.OpAppendResult{Ok: true, ID: entry.ID}, nil
}

func (s *opService) List(ctx context.Context, params *dto.OpListRequest) ([]*dto.OpDTO, error) {
	if params == nil {
		return nil, countError("ListOps", code.ErrorInvalidParams.WithDetails("roomId is required"))
	}
	if err := requireFields("roomId", params.RoomID); err != nil {
		return nil, countError("ListOps", err)
	}

	entries, err := s.opRepo.ListByRoomID(ctx, strings.TrimSpace(params.RoomID), s.config.opLimit(params.Limit))
	if err != nil {
		return nil, countError("ListOps", storeError(err, code.ErrorOpSaveFailed))
	}

	out := make([]*dto.OpDTO, 0, len(entries))
	for _, e := range entries {
		item := &dto.OpDTO{Op: json.RawMessage(e.Op)}
		if err := dto.Copy(item, e); err != nil {
			return nil, countError("ListOps", code.ErrorServerInternal.WithDetails(err.Error()))
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *opService) CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.opRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, countError("CleanupOps", storeError(err, code.ErrorDBQuery))
	}
	if n > 0 {
		s.logger.Info("op log cleaned",
			zap.Int64(logger.FieldCount, n),
			zap.Time("cutoff", cutoff))
	}
	return n, nil
}

func (s *opService) RetentionCutoff(now time.Time) (time.Time, bool, error) {
	raw := strings.TrimSpace(s.config.OpRetentionTime)
	if raw == "" {
		return time.Time{}, false, nil
	}
	retention, err := util.ParseDuration(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	if retention <= 0 {
		return time.Time{}, false, nil
	}
	return now.Add(-retention), true, nil
}

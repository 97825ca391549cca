package editor

import (
	"context"
	"strconv"
	"strings"

	"github.com/haierkeys/doc-history-service/pkg/content"
	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// HistoryBrowser lists a room's versions and hides entries whose text equals the next older one
// HistoryBrowser 列出房间的版本，并隐藏与更早一个版本文本相同的条目
type HistoryBrowser struct {
	store       historyclient.Store
	observer    *Observer
	logger      *zap.Logger
	concurrency int
}

// NewHistoryBrowser 创建 HistoryBrowser
func NewHistoryBrowser(store historyclient.Store, observer *Observer, concurrency int, logger *zap.Logger) *HistoryBrowser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConfig().FetchConcurrency
	}
	return &HistoryBrowser{store: store, observer: observer, logger: logger, concurrency: concurrency}
}

// List 返回房间的版本摘要，最新的在前
func (b *HistoryBrowser) List(ctx context.Context, roomID string) ([]historyclient.VersionSummary, error) {
	return b.store.ListVersions(ctx, roomID)
}

// DisplayFilter marks version i visible when its signature differs from version i+1,
// or when it is the oldest. A failed fetch for either side of a pair keeps the entry visible.
// DisplayFilter 版本 i 的签名与 i+1 不同或它是最旧版本时可见，任一侧拉取失败时保持可见
func (b *HistoryBrowser) DisplayFilter(ctx context.Context, versions []historyclient.VersionSummary) map[int64]bool {
	visible := make(map[int64]bool, len(versions))
	if len(versions) == 0 {
		return visible
	}

	sigs := make([]string, len(versions))
	ok := make([]bool, len(versions))

	var sf singleflight.Group
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range versions {
		g.Go(func() error {
			id := versions[i].ID
			v, err, _ := sf.Do(strconv.FormatInt(id, 10), func() (any, error) {
				return b.store.GetVersion(gctx, id)
			})
			if err != nil {
				b.logger.Debug("display filter fetch failed", zap.Int64("versionId", id), zap.Error(err))
				return nil
			}
			sigs[i] = content.Signature(v.(*historyclient.Version).Content)
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	last := len(versions) - 1
	for i, v := range versions {
		if i == last || !ok[i] || !ok[i+1] {
			visible[v.ID] = true
			continue
		}
		visible[v.ID] = sigs[i] != sigs[i+1]
	}
	return visible
}

// Restore fetches a version for display or reconciliation; it never writes to the store
// Restore 拉取版本用于展示或协调，不会写入存储
func (b *HistoryBrowser) Restore(ctx context.Context, roomID string, versionID int64) (*historyclient.Version, error) {
	v, err := b.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(roomID) != "" && v.RoomID != roomID {
		return nil, historyclient.ErrOwnershipMismatch
	}
	return v, nil
}

// Revert materializes versionID as the room's next version and notifies listeners
// Revert 将 versionID 复制为房间的新版本并通知监听器
func (b *HistoryBrowser) Revert(ctx context.Context, roomID string, versionID int64, authorEmail, title string) (*historyclient.RevertResult, error) {
	res, err := b.store.Revert(ctx, historyclient.RevertRequest{
		RoomID:      roomID,
		VersionID:   versionID,
		AuthorEmail: authorEmail,
		Title:       title,
	})
	if err != nil {
		return nil, err
	}
	if b.observer != nil {
		b.observer.Publish(VersionsChanged{RoomID: roomID, Version: res.Version})
	}
	return res, nil
}

// Subscribe registers a refresh callback on the session observer
// Subscribe 在会话 Observer 上注册刷新回调
func (b *HistoryBrowser) Subscribe(fn func(VersionsChanged)) func() {
	if b.observer == nil {
		return func() {}
	}
	return b.observer.Subscribe(fn)
}

package task

import (
	"context"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"

	"go.uber.org/zap"
)

func init() {
	RegisterWithApp(NewVersionArchiveTask)
}

// VersionArchiveTask exports rooms edited since the previous run; the first run exports every room
// VersionArchiveTask 导出自上次运行以来有编辑的房间，首次运行导出全部房间
type VersionArchiveTask struct {
	app    *app.App
	logger *zap.Logger
	spec   string
	now    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewVersionArchiveTask returns nil when archiving is disabled
// NewVersionArchiveTask 未启用归档时返回 nil
func NewVersionArchiveTask(appContainer *app.App) (Task, error) {
	cfg := appContainer.Config().Archive
	if !cfg.Enabled {
		return nil, nil
	}
	return &VersionArchiveTask{
		app:    appContainer,
		logger: appContainer.Logger(),
		spec:   cfg.Spec,
		now:    time.Now,
	}, nil
}

func (t *VersionArchiveTask) Name() string {
	return "VersionArchiveTask"
}

func (t *VersionArchiveTask) Spec() string {
	return t.spec
}

func (t *VersionArchiveTask) IsStartupRun() bool {
	return false
}

// Run 执行归档，失败的房间在下次运行时重试
func (t *VersionArchiveTask) Run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	started := t.now()
	res, err := t.app.ArchiveService.ArchiveSince(ctx, t.lastRun)
	if err != nil {
		t.logger.Error(t.Name()+" failed", zap.Error(err))
		return err
	}
	if len(res.Failed) == 0 {
		t.lastRun = started
	}
	t.logger.Info(t.Name()+" completed",
		zap.Int("rooms", res.Rooms),
		zap.Strings("failed", res.Failed),
		zap.Time("since", t.lastRun))
	return nil
}

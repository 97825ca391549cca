package task

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/pkg/logger"

	"go.uber.org/zap"
)

// init 自动注册操作日志清理任务
func init() {
	RegisterWithApp(NewOpCleanupTask)
}

// OpCleanupTask deletes operation log entries past the retention time
// OpCleanupTask 删除超过保留时间的操作日志
type OpCleanupTask struct {
	app      *app.App
	logger   *zap.Logger
	spec     string
	firstRun atomic.Bool
	now      func() time.Time
}

// NewOpCleanupTask returns nil when retention is disabled
// NewOpCleanupTask 保留时间未配置时返回 nil
func NewOpCleanupTask(appContainer *app.App) (Task, error) {
	if _, ok, err := appContainer.OpService.RetentionCutoff(time.Now()); err != nil || !ok {
		return nil, err
	}
	t := &OpCleanupTask{
		app:    appContainer,
		logger: appContainer.Logger(),
		spec:   appContainer.Config().Task.OpCleanupSpec,
		now:    time.Now,
	}
	t.firstRun.Store(true)
	return t, nil
}

// Name 返回任务名称
func (t *OpCleanupTask) Name() string {
	return "OpCleanupTask"
}

// Spec 返回 cron 表达式
func (t *OpCleanupTask) Spec() string {
	return t.spec
}

// IsStartupRun 是否立即执行一次
func (t *OpCleanupTask) IsStartupRun() bool {
	return true
}

// Run 执行清理
func (t *OpCleanupTask) Run(ctx context.Context) error {
	status := "scheduled"
	if t.firstRun.Swap(false) {
		status = "first-run"
	}

	cutoff, ok, err := t.app.OpService.RetentionCutoff(t.now())
	if err != nil || !ok {
		return err
	}

	n, err := t.app.OpService.CleanupBefore(ctx, cutoff)
	if err != nil {
		t.logger.Error(t.Name()+" failed ["+status+"]", zap.Error(err))
		return err
	}
	t.logger.Info(t.Name()+" completed ["+status+"]",
		zap.Int64(logger.FieldCount, n),
		zap.Time("cutoff", cutoff))
	return nil
}

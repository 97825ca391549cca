package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/internal/dto"
	"github.com/haierkeys/doc-history-service/pkg/safe_close"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var dbSeq atomic.Int64

func newTaskApp(t *testing.T, retention string, opts ...func(*app.AppConfig)) *app.App {
	t.Helper()
	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)
	cfg.Task.OpRetentionTime = retention
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{
		Type:         "sqlite",
		Path:         fmt.Sprintf("file:tasktest%d?mode=memory&cache=shared", dbSeq.Add(1)),
		AutoMigrate:  true,
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	a, err := app.NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestOpCleanupTask_DeletesExpired(t *testing.T) {
	a := newTaskApp(t, "1h")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.OpService.Append(ctx, &dto.OpAppendRequest{
			RoomID:    "r1",
			UserEmail: "a@example.com",
			Op:        json.RawMessage(`{"type":"insert"}`),
		})
		require.NoError(t, err)
	}

	tk, err := NewOpCleanupTask(a)
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, "@every 1h", tk.Spec())

	// nothing is older than an hour yet
	require.NoError(t, tk.Run(ctx))
	list, err := a.OpService.List(ctx, &dto.OpListRequest{RoomID: "r1"})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	tk.(*OpCleanupTask).now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, tk.Run(ctx))
	list, err = a.OpService.List(ctx, &dto.OpListRequest{RoomID: "r1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpCleanupTask_Disabled(t *testing.T) {
	for _, retention := range []string{"", "0"} {
		a := newTaskApp(t, retention)
		tk, err := NewOpCleanupTask(a)
		require.NoError(t, err)
		assert.Nil(t, tk, "retention %q", retention)
	}

	a := newTaskApp(t, "soon")
	_, err := NewOpCleanupTask(a)
	assert.Error(t, err)
}

type probeTask struct {
	spec string
	runs chan struct{}
	err  error
}

func (p *probeTask) Name() string       { return "probe" }
func (p *probeTask) Spec() string       { return p.spec }
func (p *probeTask) IsStartupRun() bool { return true }
func (p *probeTask) Run(ctx context.Context) error {
	p.runs <- struct{}{}
	if p.err != nil {
		return p.err
	}
	panic("probe panics are recovered")
}

func TestScheduler_StartupRunAndStop(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)

	require.Error(t, s.AddTask(&probeTask{spec: "not a spec"}))
	assert.Empty(t, s.Tasks())

	p := &probeTask{spec: "@every 1h", runs: make(chan struct{}, 2)}
	require.NoError(t, s.AddTask(p))
	q := &probeTask{spec: "0 3 * * *", runs: make(chan struct{}, 2), err: errors.New("boom")}
	require.NoError(t, s.AddTask(q))
	s.Start()

	for _, task := range []*probeTask{p, q} {
		select {
		case <-task.runs:
		case <-time.After(3 * time.Second):
			t.Fatal("startup run not executed")
		}
	}

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}

func TestManager_RegisterTasks(t *testing.T) {
	a := newTaskApp(t, "30d")
	m := NewManager(a, safe_close.NewSafeClose())
	require.NoError(t, m.RegisterTasks())

	names := make([]string, 0)
	for _, tk := range m.scheduler.Tasks() {
		names = append(names, tk.Name())
	}
	assert.Contains(t, names, "OpCleanupTask")
	assert.NotContains(t, names, "VersionArchiveTask")

	a.Config().Task.OpCleanupSpec = "bad spec"
	m = NewManager(a, safe_close.NewSafeClose())
	assert.Error(t, m.RegisterTasks())
}

func TestVersionArchiveTask(t *testing.T) {
	dir := t.TempDir()
	a := newTaskApp(t, "30d", func(c *app.AppConfig) {
		c.Archive.Enabled = true
		c.Archive.Storage.Type = "localfs"
		c.Archive.Storage.SavePath = dir
	})
	ctx := context.Background()

	_, err := a.VersionService.Save(ctx, &dto.VersionSaveRequest{
		RoomID:      "r1",
		AuthorEmail: "a@example.com",
		Content:     json.RawMessage(`{"root":{"children":[]}}`),
	})
	require.NoError(t, err)

	tk, err := NewVersionArchiveTask(a)
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, "@daily", tk.Spec())
	assert.False(t, tk.IsStartupRun())

	archive := tk.(*VersionArchiveTask)
	archive.now = func() time.Time { return time.Now().Add(time.Minute) }
	require.NoError(t, tk.Run(ctx))

	files, err := filepath.Glob(filepath.Join(dir, "archive", "r1", "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.False(t, archive.lastRun.IsZero())

	// nothing changed since the last run
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "archive")))
	require.NoError(t, tk.Run(ctx))
	files, err = filepath.Glob(filepath.Join(dir, "archive", "r1", "*.json"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestVersionArchiveTask_Disabled(t *testing.T) {
	a := newTaskApp(t, "30d")
	tk, err := NewVersionArchiveTask(a)
	require.NoError(t, err)
	assert.Nil(t, tk)
}

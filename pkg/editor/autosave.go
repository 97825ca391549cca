package editor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"go.uber.org/zap"
)

// Identity is the best-known title and author used for saves
// Identity 保存时使用的标题与作者
type Identity struct {
	Title       string
	AuthorEmail string
}

// Autosaver persists snapshots of one editor on a fixed interval when their text changed
// Autosaver 按固定间隔在文本变化时持久化编辑器快照
type Autosaver struct {
	roomID   string
	editor   LiveEditor
	detector *ChangeDetector
	store    historyclient.Store
	observer *Observer
	logger   *zap.Logger
	interval time.Duration

	identity atomic.Pointer[Identity]
	busy     atomic.Bool

	// ticks started by the loop run on tickCtx; Close cancels it and waits on inflight
	// 循环启动的保存使用 tickCtx，Close 会取消它并等待 inflight
	tickCtx    context.Context
	tickCancel context.CancelFunc
	inflight   sync.WaitGroup

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

// NewAutosaver 创建 Autosaver
func NewAutosaver(roomID string, ed LiveEditor, detector *ChangeDetector, store historyclient.Store, observer *Observer, interval time.Duration, logger *zap.Logger) *Autosaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultConfig().AutosaveInterval
	}
	a := &Autosaver{
		roomID:   roomID,
		editor:   ed,
		detector: detector,
		store:    store,
		observer: observer,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	a.tickCtx, a.tickCancel = context.WithCancel(context.Background())
	a.identity.Store(&Identity{})
	return a
}

// SetIdentity updates the title and author used by later saves
// SetIdentity 更新之后保存使用的标题与作者
func (a *Autosaver) SetIdentity(id Identity) {
	a.identity.Store(&id)
}

// Start begins ticking; it is a no-op when already started or closed
// Start 开始定时保存，已启动或已关闭时不做任何事
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true
	go a.loop()
}

func (a *Autosaver) loop() {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if !a.busy.CompareAndSwap(false, true) {
				a.logger.Debug("autosave tick skipped, previous save in flight", zap.String("roomId", a.roomID))
				continue
			}
			a.inflight.Add(1)
			go func() {
				defer a.inflight.Done()
				defer a.busy.Store(false)
				a.Tick(a.tickCtx)
			}()
		}
	}
}

// Tick runs one autosave check and saves when the text changed. It reports whether a version was written.
// Tick 执行一次自动保存检查，文本变化时保存，返回是否写入了版本
func (a *Autosaver) Tick(ctx context.Context) bool {
	snapshot, err := a.editor.Snapshot()
	if err != nil {
		a.logger.Warn("autosave snapshot failed", zap.String("roomId", a.roomID), zap.Error(err))
		return false
	}
	decision, sig := a.detector.Check(snapshot)
	if decision == Unchanged {
		return false
	}

	id := a.identity.Load()
	res, err := a.store.SaveVersion(ctx, historyclient.SaveRequest{
		RoomID:      a.roomID,
		Title:       id.Title,
		AuthorEmail: id.AuthorEmail,
		Content:     snapshot,
	})
	if err != nil {
		a.detector.Forget(sig)
		a.logger.Warn("autosave failed", zap.String("roomId", a.roomID), zap.Error(err))
		return false
	}

	a.logger.Debug("autosave saved", zap.String("roomId", a.roomID), zap.Int64("version", res.Version))
	if a.observer != nil {
		a.observer.Publish(VersionsChanged{RoomID: a.roomID, Version: res.Version})
	}
	return true
}

// Close stops ticking and makes the final save through the beacon path without blocking on the network.
// An autosaver that never started makes no final save.
// Close 停止定时保存，并通过 beacon 方式进行最终保存，不阻塞网络；未启动过的 Autosaver 不做最终保存
func (a *Autosaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	started := a.started
	close(a.stop)
	a.mu.Unlock()
	if !started {
		a.tickCancel()
		return
	}
	<-a.done

	// A tick still saving owns the detector's signature. Cancel it and wait, so a
	// save that fails here has forgotten its signature before the final check.
	// 仍在保存的 tick 持有检测器签名；取消并等待它，使失败的保存在最终检查前已遗忘签名
	a.tickCancel()
	a.inflight.Wait()

	snapshot, err := a.editor.Snapshot()
	if err != nil {
		a.logger.Warn("final save snapshot failed", zap.String("roomId", a.roomID), zap.Error(err))
		return
	}
	if decision, _ := a.detector.Check(snapshot); decision == Unchanged {
		return
	}
	id := a.identity.Load()
	a.store.SaveVersionBeacon(historyclient.SaveRequest{
		RoomID:      a.roomID,
		Title:       id.Title,
		AuthorEmail: id.AuthorEmail,
		Content:     snapshot,
	})
}

package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrApplySuperseded 被更新的 Apply 取代
	ErrApplySuperseded = errors.New("editor: restore superseded by a newer one")
	// ErrReconcilerClosed Reconciler 已关闭
	ErrReconcilerClosed = errors.New("editor: reconciler closed")
)

// Reconciler applies a restored snapshot to the live editor after a guard delay, so an
// initial sync still in flight does not overwrite it. The guard is time based; the live-sync
// layer exposes no settled signal.
// Reconciler 在等待保护时间后将恢复的快照应用到编辑器，避免被进行中的初始同步覆盖。
// 保护机制基于时间，实时同步层不提供同步完成信号
type Reconciler struct {
	editor       LiveEditor
	logger       *zap.Logger
	loadingDelay time.Duration
	readyDelay   time.Duration

	mu      sync.Mutex
	seq     uint64
	pending context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewReconciler 创建 Reconciler，延迟为 0 时使用默认值
func NewReconciler(ed LiveEditor, loadingDelay, readyDelay time.Duration, logger *zap.Logger) *Reconciler {
	def := DefaultConfig()
	if loadingDelay <= 0 {
		loadingDelay = def.LoadingDelay
	}
	if readyDelay <= 0 {
		readyDelay = def.ReadyDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{editor: ed, logger: logger, loadingDelay: loadingDelay, readyDelay: readyDelay}
}

// GuardDelay 返回给定同步状态下的等待时间
func (r *Reconciler) GuardDelay(ready ReadyState) time.Duration {
	if ready == NotLoaded || ready == Loading {
		return r.loadingDelay
	}
	return r.readyDelay
}

// Apply schedules target to replace the editor state and returns at once.
// The channel receives the outcome exactly once. A newer Apply cancels this one.
// Apply 安排 target 替换编辑器状态并立即返回，通道只接收一次结果，新的 Apply 会取消旧的
func (r *Reconciler) Apply(ctx context.Context, target json.RawMessage, ready ReadyState) <-chan error {
	out := make(chan error, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		out <- ErrReconcilerClosed
		return out
	}
	if r.pending != nil {
		r.pending()
	}
	applyCtx, cancel := context.WithCancel(ctx)
	r.seq++
	seq := r.seq
	r.pending = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	delay := r.GuardDelay(ready)
	go func() {
		defer r.wg.Done()
		defer r.clearPending(seq)
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-applyCtx.Done():
			if ctx.Err() != nil {
				out <- ctx.Err()
			} else if r.isClosed() {
				out <- ErrReconcilerClosed
			} else {
				out <- ErrApplySuperseded
			}
			return
		case <-timer.C:
		}
		out <- r.apply(target)
	}()
	return out
}

func (r *Reconciler) apply(target json.RawMessage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("editor: restore panicked: %v", p)
		}
		if err != nil {
			r.logger.Error("restore apply failed", zap.Error(err))
		}
	}()

	state, err := r.editor.ParseState(target)
	if err != nil {
		return fmt.Errorf("editor: parse state: %w", err)
	}
	if err := r.editor.SetState(state); err != nil {
		return fmt.Errorf("editor: set state: %w", err)
	}
	if err := r.editor.SelectEnd(); err != nil {
		r.logger.Warn("restore select end failed", zap.Error(err))
	}
	return nil
}

func (r *Reconciler) clearPending(seq uint64) {
	r.mu.Lock()
	if r.seq == seq {
		r.pending = nil
	}
	r.mu.Unlock()
}

func (r *Reconciler) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close cancels a pending application and waits for it to report
// Close 取消待执行的恢复并等待其结束
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.pending != nil {
		r.pending()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

package editor

import (
	"sync"

	"go.uber.org/zap"
)

// Observer is a per-session registry of "versions changed" listeners
// Observer 会话级的"版本变化"监听器注册表
type Observer struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]func(VersionsChanged)
	logger *zap.Logger
}

// NewObserver 创建 Observer
func NewObserver(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{subs: make(map[int]func(VersionsChanged)), logger: logger}
}

// Subscribe registers fn and returns its unsubscribe func
// Subscribe 注册 fn 并返回取消订阅函数
func (o *Observer) Subscribe(fn func(VersionsChanged)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Publish calls every listener synchronously; a panicking listener does not stop the others
// Publish 同步调用所有监听器，单个监听器 panic 不影响其他监听器
func (o *Observer) Publish(ev VersionsChanged) {
	o.mu.RLock()
	fns := make([]func(VersionsChanged), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		o.call(fn, ev)
	}
}

func (o *Observer) call(fn func(VersionsChanged), ev VersionsChanged) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("versions changed listener panic", zap.String("roomId", ev.RoomID), zap.Any("panic", r))
		}
	}()
	fn(ev)
}

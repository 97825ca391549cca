package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/logger"

	"go.uber.org/zap"
)

// ErrHubClosed 在 Hub 关闭后发布或订阅时返回
var ErrHubClosed = errors.New("notify hub is closed")

type memorySub struct {
	roomID string
	ch     chan Event
}

// MemoryHub delivers events inside one process
// MemoryHub 在单进程内分发事件
type MemoryHub struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	closed bool
	logger *zap.Logger
}

func NewMemoryHub(lg *zap.Logger) *MemoryHub {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &MemoryHub{subs: make(map[*memorySub]struct{}), logger: lg}
}

func (h *MemoryHub) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for s := range h.subs {
		if s.roomID != AllRooms && s.roomID != ev.RoomID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("notify subscriber is slow, event dropped",
				zap.String(logger.FieldRoomID, ev.RoomID),
				zap.String("type", string(ev.Type)))
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrHubClosed
	}
	s := &memorySub{roomID: roomID, ch: make(chan Event, subscriberBuffer)}
	h.subs[s] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.ch)
			}
		})
	}
	return s.ch, cancel, nil
}

func (h *MemoryHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
	return nil
}

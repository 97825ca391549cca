package editor

import (
	"strings"
	"sync"
	"time"
)

// PresenceKind 成员通知类型
type PresenceKind string

const (
	PresenceJoin  PresenceKind = "join"
	PresenceLeave PresenceKind = "leave"
)

// PresenceFilter decides which join/leave announcements a session shows.
// Own events are dropped, a repeated (kind, user) is dropped inside the window,
// and leaves arriving right after this session joined are dropped as reconnect churn.
// PresenceFilter 决定会话展示哪些加入/离开通知：忽略自己的事件，窗口内重复的（类型, 用户）被忽略，
// 本会话刚加入后立即到达的离开通知视为重连抖动而忽略
type PresenceFilter struct {
	self   string
	window time.Duration
	grace  time.Duration

	mu       sync.Mutex
	joinedAt time.Time
	seen     map[string]time.Time
}

// NewPresenceFilter 创建 PresenceFilter，self 为当前会话的用户标识
func NewPresenceFilter(self string, window, grace time.Duration) *PresenceFilter {
	def := DefaultConfig()
	if window <= 0 {
		window = def.PresenceWindow
	}
	if grace <= 0 {
		grace = def.PresenceLeaveGrace
	}
	return &PresenceFilter{self: self, window: window, grace: grace, seen: make(map[string]time.Time)}
}

// MarkJoined 记录本会话加入房间的时间
func (f *PresenceFilter) MarkJoined(at time.Time) {
	f.mu.Lock()
	f.joinedAt = at
	f.mu.Unlock()
}

// Allow reports whether the announcement should be shown and records it when it is
// Allow 判断通知是否应展示，展示时记录
func (f *PresenceFilter) Allow(kind PresenceKind, user string, at time.Time) bool {
	if kind != PresenceJoin && kind != PresenceLeave {
		return false
	}
	user = strings.TrimSpace(user)
	if f.self != "" && user == f.self {
		return false
	}
	if user == "" {
		user = "unknown"
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := string(kind) + ":" + user
	if last, ok := f.seen[key]; ok && at.Sub(last) < f.window {
		return false
	}
	if kind == PresenceLeave && !f.joinedAt.IsZero() && at.Sub(f.joinedAt) < f.grace {
		return false
	}
	f.seen[key] = at
	return true
}

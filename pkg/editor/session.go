package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Room frame types shared with the server's room event socket
// 与服务端房间事件连接共用的消息类型
const (
	ActionVersionsChanged = "VersionsChanged"
	ActionApplyState      = "ApplyState"
	ActionUndo            = "Undo"
	ActionRedo            = "Redo"
	ActionPresenceJoin    = "PresenceJoin"
	ActionPresenceLeave   = "PresenceLeave"
)

// Relay forwards a local restore to the other members of the room
// Relay 将本地恢复转发给房间其他成员
type Relay interface {
	SendApplyState(state json.RawMessage, versionID int64) error
}

// PresenceEvent 展示给用户的成员通知
type PresenceEvent struct {
	Kind      PresenceKind
	UserEmail string
	Online    int
}

// SessionOptions 会话选项
type SessionOptions struct {
	Config      Config
	Title       string
	AuthorEmail string
	Logger      *zap.Logger
	// OnPresence receives the announcements that pass the presence filter
	// OnPresence 接收通过成员过滤器的通知
	OnPresence func(PresenceEvent)
}

// Session owns the history state of one open editor. Nothing is shared between sessions.
// Session 持有单个打开的编辑器的历史状态，会话之间不共享任何状态
type Session struct {
	RoomID string

	Observer   *Observer
	Detector   *ChangeDetector
	Autosaver  *Autosaver
	Browser    *HistoryBrowser
	Reconciler *Reconciler
	Presence   *PresenceFilter

	cfg        Config
	editor     LiveEditor
	store      historyclient.Store
	logger     *zap.Logger
	onPresence func(PresenceEvent)

	mu     sync.Mutex
	relay  Relay
	loaded chan struct{}
	cancel context.CancelFunc
	closed bool
}

// NewSession 创建会话，Open 之前不会发起任何请求
func NewSession(roomID string, ed LiveEditor, store historyclient.Store, opts SessionOptions) (*Session, error) {
	if roomID == "" {
		return nil, errors.New("editor: roomID is required")
	}
	if ed == nil || store == nil {
		return nil, errors.New("editor: editor and store are required")
	}
	cfg := opts.Config.withDefaults()
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	lg = lg.With(zap.String("roomId", roomID))

	s := &Session{
		RoomID:     roomID,
		cfg:        cfg,
		editor:     ed,
		store:      store,
		logger:     lg,
		onPresence: opts.OnPresence,
		loaded:     make(chan struct{}),
	}
	s.Observer = NewObserver(lg)
	s.Detector = NewChangeDetector()
	s.Autosaver = NewAutosaver(roomID, ed, s.Detector, store, s.Observer, cfg.AutosaveInterval, lg)
	s.Autosaver.SetIdentity(Identity{Title: opts.Title, AuthorEmail: opts.AuthorEmail})
	s.Browser = NewHistoryBrowser(store, s.Observer, cfg.FetchConcurrency, lg)
	s.Reconciler = NewReconciler(ed, cfg.LoadingDelay, cfg.ReadyDelay, lg)
	s.Presence = NewPresenceFilter(opts.AuthorEmail, cfg.PresenceWindow, cfg.PresenceLeaveGrace)
	return s, nil
}

// Open loads the latest persisted version after LoadDelay, applies it through the
// reconciler, seeds the change detector and then starts autosave. It returns at once.
// Open 在 LoadDelay 后加载最新持久化版本，经 Reconciler 应用并设置变更检测基线，然后启动自动保存，立即返回
func (s *Session) Open() {
	s.mu.Lock()
	if s.closed || s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.Presence.MarkJoined(time.Now())
	go func() {
		defer close(s.loaded)
		if err := s.loadLatest(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("load latest version failed", zap.Error(err))
		}
		if ctx.Err() == nil {
			s.Autosaver.Start()
		}
	}()
}

// Loaded is closed once the initial load has finished, successfully or not
// Loaded 初始加载结束（无论成功与否）后关闭
func (s *Session) Loaded() <-chan struct{} {
	return s.loaded
}

func (s *Session) loadLatest(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.LoadDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	list, err := s.store.ListVersions(ctx, s.RoomID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	latest, err := s.store.GetVersion(ctx, list[0].ID)
	if err != nil {
		return err
	}
	if err := <-s.Reconciler.Apply(ctx, latest.Content, s.editor.ReadyState()); err != nil {
		return err
	}
	s.Detector.Seed(latest.Content)
	s.logger.Debug("latest version loaded", zap.Int64("version", latest.Version))
	return nil
}

// SetIdentity 更新保存与回滚使用的标题和作者
func (s *Session) SetIdentity(id Identity) {
	s.Autosaver.SetIdentity(id)
}

// AttachRelay sets where local reverts are broadcast
// AttachRelay 设置本地回滚的广播目标
func (s *Session) AttachRelay(r Relay) {
	s.mu.Lock()
	s.relay = r
	s.mu.Unlock()
}

// Preview applies a version to the local editor only; the store is not touched
// Preview 仅将版本应用到本地编辑器，不修改存储
func (s *Session) Preview(ctx context.Context, versionID int64) <-chan error {
	v, err := s.Browser.Restore(ctx, s.RoomID, versionID)
	if err != nil {
		out := make(chan error, 1)
		out <- err
		return out
	}
	return s.Reconciler.Apply(ctx, v.Content, s.editor.ReadyState())
}

// Revert materializes versionID as a new version, applies it locally and relays it to the room
// Revert 将 versionID 复制为新版本，在本地应用并转发给房间
func (s *Session) Revert(ctx context.Context, versionID int64) (*historyclient.RevertResult, <-chan error, error) {
	id := s.Autosaver.identity.Load()
	res, err := s.Browser.Revert(ctx, s.RoomID, versionID, id.AuthorEmail, id.Title)
	if err != nil {
		return nil, nil, err
	}
	s.Detector.Seed(res.Content)
	applied := s.Reconciler.Apply(ctx, res.Content, s.editor.ReadyState())

	s.mu.Lock()
	relay := s.relay
	s.mu.Unlock()
	if relay != nil {
		if err := relay.SendApplyState(res.Content, res.Version); err != nil {
			s.logger.Warn("relay apply state failed", zap.Error(err))
		}
	}
	return res, applied, nil
}

// HandleRemote dispatches one frame received from the room
// HandleRemote 处理从房间收到的一条消息
func (s *Session) HandleRemote(action string, data json.RawMessage) {
	switch action {
	case ActionVersionsChanged:
		var ev VersionsChanged
		if err := sonic.Unmarshal(data, &ev); err != nil {
			s.logger.Debug("bad versions changed frame", zap.Error(err))
			return
		}
		s.Observer.Publish(ev)
	case ActionApplyState:
		var msg struct {
			State     json.RawMessage `json:"state"`
			VersionID int64           `json:"versionId"`
		}
		if err := sonic.Unmarshal(data, &msg); err != nil || len(msg.State) == 0 {
			s.logger.Debug("bad apply state frame", zap.Error(err))
			return
		}
		s.Detector.Seed(msg.State)
		s.Reconciler.Apply(context.Background(), msg.State, s.editor.ReadyState())
	case ActionUndo, ActionRedo:
		ur, ok := s.editor.(UndoRedoer)
		if !ok {
			return
		}
		var msg struct {
			Steps int `json:"steps"`
		}
		_ = sonic.Unmarshal(data, &msg)
		if msg.Steps <= 0 {
			msg.Steps = 1
		}
		var err error
		if action == ActionUndo {
			err = ur.Undo(msg.Steps)
		} else {
			err = ur.Redo(msg.Steps)
		}
		if err != nil {
			s.logger.Warn("remote "+action+" failed", zap.Error(err))
		}
	case ActionPresenceJoin, ActionPresenceLeave:
		var msg struct {
			UserEmail string `json:"userEmail"`
			Online    int    `json:"online"`
		}
		if err := sonic.Unmarshal(data, &msg); err != nil {
			return
		}
		kind := PresenceJoin
		if action == ActionPresenceLeave {
			kind = PresenceLeave
		}
		if s.Presence.Allow(kind, msg.UserEmail, time.Now()) && s.onPresence != nil {
			s.onPresence(PresenceEvent{Kind: kind, UserEmail: msg.UserEmail, Online: msg.Online})
		}
	}
}

// Close ends the session: the loader stops, the final save goes out as a beacon and
// any pending restore is cancelled
// Close 结束会话：停止加载，最终保存以 beacon 方式发出，取消待执行的恢复
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.loaded
		s.Autosaver.Close()
	}
	s.Reconciler.Close()
}

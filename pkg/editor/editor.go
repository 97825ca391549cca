// Package editor holds the per-session client logic of the version history:
// autosave, change detection, history browsing and restore reconciliation.
// Package editor 包含版本历史在客户端的会话逻辑：
// 自动保存、变更检测、历史浏览与恢复协调
package editor

import (
	"encoding/json"
)

// ReadyState reports how far the live editor got with its initial sync
// ReadyState 表示编辑器初始同步的进度
type ReadyState int

const (
	// NotLoaded 尚未开始加载
	NotLoaded ReadyState = iota
	// Loading 正在从实时同步层加载初始状态
	Loading
	// Ready 初始同步完成
	Ready
)

func (s ReadyState) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// LiveEditor is the editor host the session drives. The rich-text model stays opaque:
// states are whatever ParseState returns and SetState accepts.
// LiveEditor 会话所驱动的编辑器宿主，富文本模型保持不透明
type LiveEditor interface {
	// Snapshot serializes the current document tree
	// Snapshot 序列化当前文档树
	Snapshot() (json.RawMessage, error)
	// ParseState turns a serialized tree into an editor state
	// ParseState 将序列化的文档树解析为编辑器状态
	ParseState(raw json.RawMessage) (any, error)
	// SetState replaces the live state atomically
	// SetState 原子地替换当前状态
	SetState(state any) error
	// SelectEnd moves the selection to the end of the document
	// SelectEnd 将光标移动到文档末尾
	SelectEnd() error
	// ReadyState 当前同步状态
	ReadyState() ReadyState
}

// UndoRedoer is implemented by editors that replay collaborators' undo and redo
// UndoRedoer 由支持重放协作者撤销/重做的编辑器实现
type UndoRedoer interface {
	Undo(steps int) error
	Redo(steps int) error
}

// VersionsChanged 版本列表变化通知
type VersionsChanged struct {
	RoomID  string `json:"roomId"`
	Version int64  `json:"version,omitempty"`
}

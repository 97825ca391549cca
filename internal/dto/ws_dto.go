package dto

import "encoding/json"

// WebSocketAction WebSocket text message type
// WebSocket 文本消息类型
type WebSocketAction = string

const (
	// VersionsChanged pushed to a room after a save or revert
	// VersionsChanged 保存或回滚后推送到房间
	VersionsChanged WebSocketAction = "VersionsChanged"

	// ApplyState asks the other members to load a restored document
	// ApplyState 通知其他成员加载恢复后的文档
	ApplyState WebSocketAction = "ApplyState"
	Undo       WebSocketAction = "Undo"
	Redo       WebSocketAction = "Redo"

	// PresenceJoin / PresenceLeave 成员加入 / 离开房间
	PresenceJoin  WebSocketAction = "PresenceJoin"
	PresenceLeave WebSocketAction = "PresenceLeave"
)

// VersionsChangedMessage VersionsChanged 消息体
type VersionsChangedMessage struct {
	RoomID  string `json:"roomId"`
	Version int64  `json:"version,omitempty"`
}

// ApplyStateMessage ApplyState 消息体
type ApplyStateMessage struct {
	State     json.RawMessage `json:"state" binding:"required"`
	VersionID int64           `json:"versionId"`
}

// HistoryStepMessage Undo / Redo 消息体
type HistoryStepMessage struct {
	Steps int `json:"steps"`
}

// PresenceMessage 成员进出房间消息体
type PresenceMessage struct {
	RoomID    string `json:"roomId"`
	UserEmail string `json:"userEmail"`
	Online    int    `json:"online"`
}

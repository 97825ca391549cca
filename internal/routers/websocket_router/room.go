package websocket_router

import (
	"context"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dto"
	"github.com/haierkeys/doc-history-service/internal/notify"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/logger"

	"go.uber.org/zap"
)

// RoomWSHandler relays collaborative editing frames between the members of a room
// RoomWSHandler 在房间成员之间转发协同编辑消息
type RoomWSHandler struct {
	*WSHandler
}

// NewRoomWSHandler 创建 RoomWSHandler 实例
func NewRoomWSHandler(a *app.App) *RoomWSHandler {
	return &RoomWSHandler{WSHandler: NewWSHandler(a)}
}

// Register binds the room actions and presence callbacks to wss
// Register 将房间动作与成员回调注册到 wss
func (h *RoomWSHandler) Register(wss *pkgapp.WebsocketServer) {
	wss.Use(dto.ApplyState, h.ApplyState)
	wss.Use(dto.Undo, h.Undo)
	wss.Use(dto.Redo, h.Redo)
	wss.OnJoin(h.Join)
	wss.OnLeave(h.Leave)
}

// ApplyState relays a full editor state (a reverted version) to the other members
// ApplyState 将完整编辑器状态（回滚后的版本）转发给其他成员
func (h *RoomWSHandler) ApplyState(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	params := &dto.ApplyStateMessage{}
	if valid, errs := c.BindAndValid(msg.Data, params); !valid {
		h.invalidParams(c, "RoomWSHandler.ApplyState", dto.ApplyState, errs)
		return
	}
	h.logDebug(c, "RoomWSHandler.ApplyState", zap.Int64(logger.FieldVersionID, params.VersionID))
	c.BroadcastResponse(code.Success.WithData(params), true, dto.ApplyState)
}

// Undo 转发撤销操作
func (h *RoomWSHandler) Undo(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	h.step(c, msg, dto.Undo)
}

// Redo 转发重做操作
func (h *RoomWSHandler) Redo(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	h.step(c, msg, dto.Redo)
}

func (h *RoomWSHandler) step(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage, action string) {
	params := &dto.HistoryStepMessage{}
	if len(msg.Data) > 0 {
		if valid, errs := c.BindAndValid(msg.Data, params); !valid {
			h.invalidParams(c, "RoomWSHandler."+action, action, errs)
			return
		}
	}
	if params.Steps <= 0 {
		params.Steps = 1
	}
	c.BroadcastResponse(code.Success.WithData(params), true, action)
}

// Join 通知其他成员有人加入
func (h *RoomWSHandler) Join(c *pkgapp.WebsocketClient) {
	c.BroadcastResponse(code.Success.WithData(h.presence(c)), true, dto.PresenceJoin)
}

// Leave 通知剩余成员有人离开
func (h *RoomWSHandler) Leave(c *pkgapp.WebsocketClient) {
	c.BroadcastResponse(code.Success.WithData(h.presence(c)), true, dto.PresenceLeave)
}

func (h *RoomWSHandler) presence(c *pkgapp.WebsocketClient) dto.PresenceMessage {
	return dto.PresenceMessage{
		RoomID:    c.RoomID,
		UserEmail: c.UserEmail,
		Online:    c.Server().RoomSize(c.RoomID),
	}
}

// ForwardEvents pushes hub events to the sockets of the affected room until ctx is done
// ForwardEvents 将 Hub 事件推送给对应房间的连接，直到 ctx 结束
func (h *RoomWSHandler) ForwardEvents(ctx context.Context, wss *pkgapp.WebsocketServer) error {
	events, cancel, err := h.App.Hub.Subscribe(ctx, notify.AllRooms)
	if err != nil {
		return err
	}
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Type != notify.EventVersionsChanged {
					continue
				}
				wss.BroadcastCode(ev.RoomID, code.Success.WithData(dto.VersionsChangedMessage{
					RoomID:  ev.RoomID,
					Version: ev.Version,
				}), dto.VersionsChanged)
			}
		}
	}()
	return nil
}

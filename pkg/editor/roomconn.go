package editor

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

// RoomFrame is the result envelope carried by every server frame
// RoomFrame 服务端每条消息携带的结果信封
type RoomFrame struct {
	Code   int             `json:"code"`
	Status bool            `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// RoomConn is a client connection to GET /api/rooms/events
// RoomConn 连接 GET /api/rooms/events 的客户端
type RoomConn struct {
	gws.BuiltinEventHandler

	conn    *gws.Conn
	onFrame func(action string, frame RoomFrame)
	logger  *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// DialRoom connects to the room event socket. baseURL is the http(s) address of the service.
// DialRoom 连接房间事件，baseURL 为服务的 http(s) 地址
func DialRoom(ctx context.Context, baseURL, roomID, userEmail string, onFrame func(action string, frame RoomFrame), logger *zap.Logger) (*RoomConn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, errors.New("editor: unsupported scheme " + u.Scheme)
	}
	u.Path += "/api/rooms/events"
	u.RawQuery = url.Values{"roomId": {roomID}, "userEmail": {userEmail}}.Encode()

	rc := &RoomConn{onFrame: onFrame, logger: logger, done: make(chan struct{})}
	opt := &gws.ClientOption{Addr: u.String()}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > 0 {
		opt.HandshakeTimeout = time.Until(deadline)
	}
	conn, _, err := gws.NewClient(rc, opt)
	if err != nil {
		return nil, err
	}
	rc.conn = conn
	go conn.ReadLoop()
	return rc, nil
}

func (r *RoomConn) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	action, body, ok := strings.Cut(message.Data.String(), "|")
	if !ok || action == "" {
		return
	}
	var frame RoomFrame
	if err := sonic.UnmarshalString(body, &frame); err != nil {
		r.logger.Debug("bad room frame", zap.String("action", action), zap.Error(err))
		return
	}
	if r.onFrame != nil {
		r.onFrame(action, frame)
	}
}

func (r *RoomConn) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (r *RoomConn) OnClose(socket *gws.Conn, err error) {
	r.closeOnce.Do(func() { close(r.done) })
}

// Done is closed when the connection ends
// Done 连接结束后关闭
func (r *RoomConn) Done() <-chan struct{} {
	return r.done
}

// Send 发送一条 "Type|json" 消息
func (r *RoomConn) Send(action string, payload any) error {
	b, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	return r.conn.WriteString(action + "|" + string(b))
}

// SendApplyState relays a restored state to the other room members
// SendApplyState 将恢复后的状态转发给房间其他成员
func (r *RoomConn) SendApplyState(state json.RawMessage, versionID int64) error {
	return r.Send(ActionApplyState, struct {
		State     json.RawMessage `json:"state"`
		VersionID int64           `json:"versionId"`
	}{state, versionID})
}

// Close 关闭连接
func (r *RoomConn) Close() {
	r.conn.WriteClose(1000, nil)
}

// ConnectSession dials the room and feeds successful frames into s; local reverts are relayed back
// ConnectSession 连接房间并将成功的消息交给会话处理，本地回滚会被转发回房间
func ConnectSession(ctx context.Context, baseURL string, s *Session, userEmail string, logger *zap.Logger) (*RoomConn, error) {
	rc, err := DialRoom(ctx, baseURL, s.RoomID, userEmail, func(action string, frame RoomFrame) {
		if frame.Status {
			s.HandleRemote(action, frame.Data)
		}
	}, logger)
	if err != nil {
		return nil, err
	}
	s.AttachRelay(rc)
	return rc, nil
}

var _ Relay = (*RoomConn)(nil)

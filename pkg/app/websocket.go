package app

import (
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	WebSocketServerPingInterval = 25 * time.Second
	WebSocketServerPingWait     = 40 * time.Second
)

// WebSocketMessage is one "Type|json" frame
// WebSocketMessage 表示一条 "Type|json" 帧
type WebSocketMessage struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

type ResResult struct {
	Code   int         `json:"code"`
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

type ResDetailsResult struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

type WebsocketServerConfig struct {
	GWSOption    gws.ServerOption
	PingInterval time.Duration
	PingWait     time.Duration
}

// WebsocketClient is one connection joined to a room
// WebsocketClient 表示加入某个房间的一条连接
type WebsocketClient struct {
	ID        string
	RoomID    string
	UserEmail string
	Ctx       *gin.Context

	conn      *gws.Conn
	server    *WebsocketServer
	done      chan struct{}
	closeOnce sync.Once
}

// BindAndValid decodes a frame body and validates it with the server validator
// BindAndValid 解码帧内容并使用服务端校验器校验
func (c *WebsocketClient) BindAndValid(data []byte, obj any) (bool, ValidErrors) {
	var errs ValidErrors

	if err := sonic.Unmarshal(data, obj); err != nil {
		errs = append(errs, &ValidError{Key: "body", Message: "Invalid message format"})
		return false, errs
	}
	if c.server.validate == nil {
		return true, nil
	}
	if err := c.server.validate.Struct(obj); err != nil {
		if c.Ctx != nil {
			return false, translate(c.Ctx, err)
		}
		return false, append(errs, &ValidError{Key: "body", Message: err.Error()})
	}
	return true, nil
}

// Server 返回连接所属的 WebsocketServer
func (c *WebsocketClient) Server() *WebsocketServer {
	return c.server
}

// PingLoop 定期发送 Ping 消息
func (c *WebsocketClient) PingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WritePing(nil); err != nil {
				c.server.logger.Warn("websocket ping failed", zap.String("connId", c.ID), zap.Error(err))
				return
			}
		}
	}
}

// ToResponse sends the result of an action back to this client only
// ToResponse 仅向当前客户端返回动作结果
func (c *WebsocketClient) ToResponse(codeObj *code.Code, action string) {
	c.write(action, c.result(codeObj))
}

// BroadcastResponse sends the result to the room, optionally skipping this client
// BroadcastResponse 向房间广播结果，可排除自己
func (c *WebsocketClient) BroadcastResponse(codeObj *code.Code, excludeSelf bool, action string) {
	var exclude *WebsocketClient
	if excludeSelf {
		exclude = c
	}
	c.server.BroadcastRoom(c.RoomID, action, c.result(codeObj), exclude)
}

func (c *WebsocketClient) result(codeObj *code.Code) any {
	lng := code.GetGlobalDefaultLang()
	if c.Ctx != nil {
		lng = RequestLang(c.Ctx)
	}
	return resultIn(codeObj, lng)
}

func resultIn(codeObj *code.Code, lng string) any {
	if codeObj.HaveDetails() {
		return ResDetailsResult{
			Code:    codeObj.Code(),
			Status:  codeObj.Status(),
			Msg:     codeObj.MsgIn(lng),
			Data:    codeObj.Data(),
			Details: strings.Join(codeObj.Details(), ","),
		}
	}
	return ResResult{
		Code:   codeObj.Code(),
		Status: codeObj.Status(),
		Msg:    codeObj.MsgIn(lng),
		Data:   codeObj.Data(),
	}
}

func (c *WebsocketClient) write(action string, content any) {
	payload, err := EncodeFrame(action, content)
	if err != nil {
		c.server.logger.Error("websocket encode failed", zap.String("type", action), zap.Error(err))
		return
	}
	if err := c.conn.WriteMessage(gws.OpcodeText, payload); err != nil {
		c.server.logger.Warn("websocket write failed", zap.String("connId", c.ID), zap.Error(err))
	}
}

// EncodeFrame builds a "Type|json" frame; an empty type sends bare json
// EncodeFrame 构造 "Type|json" 帧，类型为空时只发送 json
func EncodeFrame(action string, content any) ([]byte, error) {
	body, err := sonic.Marshal(content)
	if err != nil {
		return nil, err
	}
	if action == "" {
		return body, nil
	}
	out := make([]byte, 0, len(action)+1+len(body))
	out = append(out, action...)
	out = append(out, '|')
	return append(out, body...), nil
}

// DecodeFrame splits a "Type|json" frame
// DecodeFrame 拆分 "Type|json" 帧
func DecodeFrame(frame string) (*WebSocketMessage, bool) {
	index := strings.Index(frame, "|")
	if index <= 0 {
		return nil, false
	}
	return &WebSocketMessage{Type: frame[:index], Data: []byte(frame[index+1:])}, true
}

// ------------------------------------> WebsocketServer

type ConnStorage = map[*gws.Conn]*WebsocketClient

// WebsocketServer groups connections by room and dispatches frames by type
// WebsocketServer 按房间管理连接并按类型分发消息
type WebsocketServer struct {
	handlers map[string]func(*WebsocketClient, *WebSocketMessage)
	onJoin   func(*WebsocketClient)
	onLeave  func(*WebsocketClient)

	clients ConnStorage
	rooms   map[string]ConnStorage
	mu      sync.RWMutex

	up       *gws.Upgrader
	config   *WebsocketServerConfig
	logger   *zap.Logger
	validate *validator.Validate
}

func NewWebsocketServer(c WebsocketServerConfig, logger *zap.Logger, validate *validator.Validate) *WebsocketServer {
	if c.PingInterval <= 0 {
		c.PingInterval = WebSocketServerPingInterval
	}
	if c.PingWait <= 0 {
		c.PingWait = WebSocketServerPingWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	wss := &WebsocketServer{
		handlers: make(map[string]func(*WebsocketClient, *WebSocketMessage)),
		clients:  make(ConnStorage),
		rooms:    make(map[string]ConnStorage),
		config:   &c,
		logger:   logger,
		validate: validate,
	}
	wss.up = gws.NewUpgrader(wss, &wss.config.GWSOption)
	return wss
}

// Run upgrades the request and joins the connection to ?roomId=
// Run 升级连接并加入 ?roomId= 指定的房间
func (w *WebsocketServer) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := strings.TrimSpace(c.Query("roomId"))
		if roomID == "" {
			NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails("roomId is required"))
			return
		}

		socket, err := w.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			w.logger.Error("websocket upgrade failed", zap.String("roomId", roomID), zap.Error(err))
			return
		}
		client := &WebsocketClient{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			UserEmail: strings.TrimSpace(c.Query("userEmail")),
			Ctx:       c.Copy(),
			conn:      socket,
			server:    w,
			done:      make(chan struct{}),
		}
		w.AddClient(client)
		go socket.ReadLoop()
	}
}

func (w *WebsocketServer) Use(action string, handler func(*WebsocketClient, *WebSocketMessage)) {
	w.handlers[action] = handler
}

// OnJoin registers a callback run after a connection opens
// OnJoin 注册连接建立后的回调
func (w *WebsocketServer) OnJoin(fn func(*WebsocketClient)) {
	w.onJoin = fn
}

// OnLeave registers a callback run after a connection closes
// OnLeave 注册连接关闭后的回调
func (w *WebsocketServer) OnLeave(fn func(*WebsocketClient)) {
	w.onLeave = fn
}

func (w *WebsocketServer) GetClient(conn *gws.Conn) *WebsocketClient {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clients[conn]
}

func (w *WebsocketServer) AddClient(c *WebsocketClient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[c.conn] = c
	if w.rooms[c.RoomID] == nil {
		w.rooms[c.RoomID] = make(ConnStorage)
	}
	w.rooms[c.RoomID][c.conn] = c
}

func (w *WebsocketServer) RemoveClient(conn *gws.Conn) *WebsocketClient {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.clients[conn]
	if !ok {
		return nil
	}
	delete(w.clients, conn)
	if room := w.rooms[c.RoomID]; room != nil {
		delete(room, conn)
		if len(room) == 0 {
			delete(w.rooms, c.RoomID)
		}
	}
	return c
}

// RoomSize returns the number of connections in a room
// RoomSize 返回房间内连接数
func (w *WebsocketServer) RoomSize(roomID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.rooms[roomID])
}

// ClientCount returns the number of open connections
// ClientCount 返回当前连接总数
func (w *WebsocketServer) ClientCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// BroadcastRoom sends one frame to every connection in the room except exclude
// BroadcastRoom 向房间内除 exclude 外的所有连接发送同一帧
func (w *WebsocketServer) BroadcastRoom(roomID, action string, content any, exclude *WebsocketClient) {
	payload, err := EncodeFrame(action, content)
	if err != nil {
		w.logger.Error("websocket encode failed", zap.String("type", action), zap.Error(err))
		return
	}

	w.mu.RLock()
	targets := make([]*gws.Conn, 0, len(w.rooms[roomID]))
	for conn, c := range w.rooms[roomID] {
		if exclude != nil && c == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	w.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	b := gws.NewBroadcaster(gws.OpcodeText, payload)
	defer b.Close()
	for _, conn := range targets {
		_ = b.Broadcast(conn)
	}
}

// BroadcastCode sends a server-originated result to every connection in the room
// BroadcastCode 向房间内所有连接发送服务端产生的结果
func (w *WebsocketServer) BroadcastCode(roomID string, codeObj *code.Code, action string) {
	w.BroadcastRoom(roomID, action, resultIn(codeObj, code.GetGlobalDefaultLang()), nil)
}

// CloseAll sends a close frame to every connection
// CloseAll 向所有连接发送关闭帧
func (w *WebsocketServer) CloseAll() {
	w.mu.RLock()
	conns := make([]*gws.Conn, 0, len(w.clients))
	for conn := range w.clients {
		conns = append(conns, conn)
	}
	w.mu.RUnlock()
	for _, conn := range conns {
		conn.WriteClose(1001, []byte("ServerShutdown"))
	}
}

func (w *WebsocketServer) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))
	c := w.GetClient(conn)
	if c == nil {
		return
	}
	w.logger.Info("websocket client join",
		zap.String("roomId", c.RoomID),
		zap.String("connId", c.ID),
		zap.Int("roomSize", w.RoomSize(c.RoomID)))
	go c.PingLoop(w.config.PingInterval)
	if w.onJoin != nil {
		w.onJoin(c)
	}
}

func (w *WebsocketServer) OnClose(conn *gws.Conn, err error) {
	c := w.RemoveClient(conn)
	if c == nil {
		return
	}
	c.closeOnce.Do(func() { close(c.done) })
	w.logger.Info("websocket client leave",
		zap.String("roomId", c.RoomID),
		zap.String("connId", c.ID),
		zap.NamedError("reason", err))
	if w.onLeave != nil {
		w.onLeave(c)
	}
}

func (w *WebsocketServer) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
	_ = socket.WritePong(nil)
}

func (w *WebsocketServer) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))

	frame := message.Data.String()
	if frame == "close" {
		conn.WriteClose(1000, []byte("ClientClose"))
		return
	}

	c := w.GetClient(conn)
	if c == nil {
		return
	}

	msg, ok := DecodeFrame(frame)
	if !ok {
		w.logger.Warn("websocket illegal frame", zap.String("roomId", c.RoomID), zap.String("connId", c.ID))
		return
	}

	handler, exists := w.handlers[msg.Type]
	if !exists {
		w.logger.Warn("websocket unknown message type", zap.String("type", msg.Type))
		c.ToResponse(code.ErrorInvalidParams.WithDetails("unknown message type "+msg.Type), msg.Type)
		return
	}
	handler(c, msg)
}

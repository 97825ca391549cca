package websocket_router

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/internal/notify"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/validator"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/lxzan/gws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var dbSeq atomic.Int64

type recorder struct {
	gws.BuiltinEventHandler
	frames chan string
}

func (h *recorder) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.frames <- message.Data.String()
}

type roomFixture struct {
	app *app.App
	wss *pkgapp.WebsocketServer
	srv *httptest.Server
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)
	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{
		Type:         "sqlite",
		Path:         fmt.Sprintf("file:wstest%d?mode=memory&cache=shared", dbSeq.Add(1)),
		AutoMigrate:  true,
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	a, err := app.NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)

	validate, _ := validator.NewCustomValidator().Engine().(*govalidator.Validate)
	wss := pkgapp.NewWebsocketServer(pkgapp.WebsocketServerConfig{}, zap.NewNop(), validate)
	h := NewRoomWSHandler(a)
	h.Register(wss)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.ForwardEvents(ctx, wss))

	r := gin.New()
	r.GET("/ws", wss.Run())
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		wss.CloseAll()
		srv.Close()
		_ = a.Shutdown(context.Background())
	})
	return &roomFixture{app: a, wss: wss, srv: srv}
}

func (f *roomFixture) dial(t *testing.T, room, email string) (*gws.Conn, *recorder) {
	t.Helper()
	rec := &recorder{frames: make(chan string, 32)}
	addr := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?roomId=" + room + "&userEmail=" + email
	conn, _, err := gws.NewClient(rec, &gws.ClientOption{Addr: addr})
	require.NoError(t, err)
	go conn.ReadLoop()
	t.Cleanup(func() { conn.WriteClose(1000, nil) })
	return conn, rec
}

func expectFrame(t *testing.T, rec *recorder, prefix string) string {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f := <-rec.frames:
			if strings.HasPrefix(f, prefix) {
				return f
			}
		case <-deadline:
			t.Fatalf("no frame with prefix %q", prefix)
			return ""
		}
	}
}

func TestRoom_PresenceJoinAndLeave(t *testing.T) {
	f := newRoomFixture(t)

	_, alice := f.dial(t, "r1", "alice@example.com")
	require.Eventually(t, func() bool { return f.wss.RoomSize("r1") == 1 }, 3*time.Second, 10*time.Millisecond)

	bob, _ := f.dial(t, "r1", "bob@example.com")
	frame := expectFrame(t, alice, "PresenceJoin|")
	assert.Contains(t, frame, `"userEmail":"bob@example.com"`)
	assert.Contains(t, frame, `"online":2`)

	bob.WriteClose(1000, nil)
	frame = expectFrame(t, alice, "PresenceLeave|")
	assert.Contains(t, frame, `"userEmail":"bob@example.com"`)
	assert.Contains(t, frame, `"online":1`)
}

func TestRoom_ApplyStateRelay(t *testing.T) {
	f := newRoomFixture(t)

	sender, senderRec := f.dial(t, "r2", "alice@example.com")
	_, peer := f.dial(t, "r2", "bob@example.com")
	require.Eventually(t, func() bool { return f.wss.RoomSize("r2") == 2 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteString(`ApplyState|{"state":{"root":{"children":[]}},"versionId":4}`))
	frame := expectFrame(t, peer, "ApplyState|")
	assert.Contains(t, frame, `"versionId":4`)
	assert.Contains(t, frame, `"status":true`)

	require.NoError(t, sender.WriteString(`Undo|`))
	frame = expectFrame(t, peer, "Undo|")
	assert.Contains(t, frame, `"steps":1`)

	require.NoError(t, sender.WriteString(`Redo|{"steps":3}`))
	frame = expectFrame(t, peer, "Redo|")
	assert.Contains(t, frame, `"steps":3`)

	// a state frame without state is rejected back to the sender only
	require.NoError(t, sender.WriteString(`ApplyState|{"versionId":4}`))
	frame = expectFrame(t, senderRec, "ApplyState|")
	assert.Contains(t, frame, `"status":false`)
}

func TestRoom_ForwardsVersionEvents(t *testing.T) {
	f := newRoomFixture(t)

	_, rec := f.dial(t, "r3", "alice@example.com")
	require.Eventually(t, func() bool { return f.wss.RoomSize("r3") == 1 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, f.app.Hub.Publish(context.Background(), notify.Event{
		Type:    notify.EventVersionsChanged,
		RoomID:  "r3",
		Version: 7,
	}))
	frame := expectFrame(t, rec, "VersionsChanged|")
	assert.Contains(t, frame, `"roomId":"r3"`)
	assert.Contains(t, frame, `"version":7`)
}

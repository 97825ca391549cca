package editor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lxzan/gws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roomServer greets every connection with one frame and records what clients send
type roomServer struct {
	gws.BuiltinEventHandler

	mu       sync.Mutex
	received []string
	query    string
}

func (s *roomServer) OnOpen(socket *gws.Conn) {
	_ = socket.WriteString(`VersionsChanged|{"code":1,"status":true,"msg":"Success","data":{"roomId":"room-s","version":5}}`)
	_ = socket.WriteString(`ApplyState|{"code":400,"status":false,"msg":"Invalid parameters","data":null}`)
}

func (s *roomServer) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	s.mu.Lock()
	s.received = append(s.received, message.Data.String())
	s.mu.Unlock()
}

func (s *roomServer) frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func newRoomServer(t *testing.T) (*roomServer, *httptest.Server) {
	t.Helper()
	rs := &roomServer{}
	up := gws.NewUpgrader(rs, &gws.ServerOption{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms/events" {
			http.NotFound(w, r)
			return
		}
		rs.mu.Lock()
		rs.query = r.URL.RawQuery
		rs.mu.Unlock()
		socket, err := up.Upgrade(w, r)
		if err != nil {
			return
		}
		go socket.ReadLoop()
	}))
	t.Cleanup(srv.Close)
	return rs, srv
}

func TestDialRoom_UnsupportedScheme(t *testing.T) {
	_, err := DialRoom(context.Background(), "ftp://example.com", "r", "u", nil, nil)
	assert.Error(t, err)
}

func TestConnectSession(t *testing.T) {
	rs, srv := newRoomServer(t)

	store := newMemStore()
	store.add("room-s", "a@example.com", jsonDoc(tree("one")))
	ed := newFakeEditor(tree(""))
	s := openSession(t, store, ed, SessionOptions{AuthorEmail: "me@example.com"})
	defer s.Close()

	got := make(chan VersionsChanged, 1)
	s.Observer.Subscribe(func(ev VersionsChanged) { got <- ev })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rc, err := ConnectSession(ctx, srv.URL, s, "me@example.com", nil)
	require.NoError(t, err)
	defer rc.Close()

	select {
	case ev := <-got:
		assert.Equal(t, VersionsChanged{RoomID: "room-s", Version: 5}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("versions changed frame not delivered")
	}
	rs.mu.Lock()
	assert.Contains(t, rs.query, "roomId=room-s")
	assert.Contains(t, rs.query, "userEmail=me%40example.com")
	rs.mu.Unlock()

	_, applied, err := s.Revert(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, wait(t, applied))

	assert.Eventually(t, func() bool {
		frames := rs.frames()
		return len(frames) == 1 && strings.HasPrefix(frames[0], ActionApplyState+"|")
	}, 2*time.Second, 10*time.Millisecond)
}

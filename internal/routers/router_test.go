package routers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dao"
	pkgapp "github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/lxzan/gws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var dbSeq atomic.Int64

type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app    *app.App
	engine *gin.Engine
	wss    *pkgapp.WebsocketServer
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	binding.Validator = validator.NewCustomValidator()

	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)
	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{
		Type:         "sqlite",
		Path:         fmt.Sprintf("file:routertest%d?mode=memory&cache=shared", dbSeq.Add(1)),
		AutoMigrate:  true,
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	a, err := app.NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)

	engine, wss, err := NewRouter(a, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		wss.CloseAll()
		srv.Close()
		_ = a.Shutdown(context.Background())
	})
	return &testServer{app: a, engine: engine, wss: wss, srv: srv}
}

func (s *testServer) do(t *testing.T, method, path, contentType, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) save(t *testing.T, roomID, content string) int64 {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/versions", "application/json",
		fmt.Sprintf(`{"roomId":%q,"authorEmail":"a@example.com","content":%s}`, roomID, content))
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Status)
	var res struct {
		ID      int64 `json:"id"`
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.ID
}

func TestVersionRoutes_SaveListGet(t *testing.T) {
	s := newTestServer(t)

	first := s.save(t, "room-1", `{"root":{"children":[{"text":"Hello"}]}}`)
	s.save(t, "room-1", `{"root":{"children":[{"text":"Hello world"}]}}`)

	status, env := s.do(t, http.MethodGet, "/api/versions?roomId=room-1", "", "")
	require.Equal(t, http.StatusOK, status)
	var list []struct {
		ID      int64  `json:"id"`
		Version int64  `json:"version"`
		RoomID  string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].Version)
	assert.Equal(t, int64(1), list[1].Version)

	status, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/versions?versionId=%d", first), "", "")
	require.Equal(t, http.StatusOK, status)
	var one struct {
		Version int64           `json:"version"`
		Content json.RawMessage `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, int64(1), one.Version)
	assert.JSONEq(t, `{"root":{"children":[{"text":"Hello"}]}}`, string(one.Content))

	status, env = s.do(t, http.MethodGet, "/api/versions?versionId=99999", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, code.ErrorVersionNotFound.Code(), env.Code)

	status, env = s.do(t, http.MethodGet, "/api/versions", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Status)
}

func TestVersionRoutes_SaveBodies(t *testing.T) {
	s := newTestServer(t)

	// sendBeacon posts text/plain with the content as a serialized string
	status, env := s.do(t, http.MethodPost, "/api/versions", "text/plain;charset=UTF-8",
		`{"roomId":"beacon","authorEmail":"a@example.com","content":"{\"root\":{}}"}`)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.True(t, env.Status)

	form := url.Values{pkgapp.FormDataField: {`{"roomId":"form","authorEmail":"a@example.com","content":{"root":{}}}`}}
	status, env = s.do(t, http.MethodPost, "/api/versions", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, status, env.Message)

	cases := []struct {
		name string
		body string
	}{
		{"missing room", `{"authorEmail":"a@example.com","content":{}}`},
		{"blank author", `{"roomId":"r","authorEmail":"  ","content":{}}`},
		{"missing content", `{"roomId":"r","authorEmail":"a@example.com"}`},
		{"not json", `roomId=r`},
		{"empty", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodPost, "/api/versions", "application/json", tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Status)
		})
	}
}

func TestVersionRoutes_RevertDiffDocument(t *testing.T) {
	s := newTestServer(t)

	v1 := s.save(t, "doc", `{"root":{"children":[{"text":"Hello"}]}}`)
	s.save(t, "doc", `{"root":{"children":[{"text":"Hello there"}]}}`)
	other := s.save(t, "elsewhere", `{"root":{}}`)

	status, env := s.do(t, http.MethodPost, "/api/versions/revert", "application/json",
		fmt.Sprintf(`{"roomId":"doc","versionId":%d,"authorEmail":"b@example.com"}`, v1))
	require.Equal(t, http.StatusOK, status, env.Message)
	var reverted struct {
		Version int64           `json:"version"`
		Content json.RawMessage `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reverted))
	assert.Equal(t, int64(3), reverted.Version)
	assert.JSONEq(t, `{"root":{"children":[{"text":"Hello"}]}}`, string(reverted.Content))

	status, env = s.do(t, http.MethodPost, "/api/versions/revert", "application/json",
		fmt.Sprintf(`{"roomId":"doc","versionId":%d,"authorEmail":"b@example.com"}`, other))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, code.ErrorVersionRoomMismatch.Code(), env.Code)

	status, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/versions/diff?fromId=%d&toId=%d", v1, v1+1), "", "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var diff struct {
		Unchanged bool `json:"unchanged"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &diff))
	assert.False(t, diff.Unchanged)

	status, _ = s.do(t, http.MethodGet, "/api/versions/diff?fromId=0&toId=1", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/api/documents?roomId=doc", "", "")
	require.Equal(t, http.StatusOK, status)
	var doc struct {
		Title         string `json:"title"`
		LatestVersion int64  `json:"latestVersion"`
		VersionCount  int64  `json:"versionCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "Untitled", doc.Title)
	assert.Equal(t, int64(3), doc.LatestVersion)
	assert.Equal(t, int64(3), doc.VersionCount)

	status, env = s.do(t, http.MethodGet, "/api/documents?roomId=missing", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, code.ErrorDocumentNotFound.Code(), env.Code)
}

func TestOpRoutes(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 3; i++ {
		status, env := s.do(t, http.MethodPost, "/api/ops", "application/json",
			fmt.Sprintf(`{"roomId":"ops","userEmail":"a@example.com","op":{"type":"insert","n":%d}}`, i))
		require.Equal(t, http.StatusOK, status, env.Message)
	}

	status, env := s.do(t, http.MethodGet, "/api/ops?roomId=ops&limit=2", "", "")
	require.Equal(t, http.StatusOK, status)
	var ops []struct {
		Op json.RawMessage `json:"op"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ops))
	assert.Len(t, ops, 2)

	status, _ = s.do(t, http.MethodPost, "/api/ops", "application/json", `{"roomId":"ops","userEmail":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestArchiveRoute_Disabled(t *testing.T) {
	s := newTestServer(t)
	s.save(t, "r1", `{"root":{"children":[]}}`)

	status, env := s.do(t, http.MethodPost, "/api/archive", "application/json", `{"roomId":"r1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, code.ErrorArchiveDisabled.Code(), env.Code)

	status, _ = s.do(t, http.MethodPost, "/api/archive", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, status)
	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Database)

	status, env = s.do(t, http.MethodGet, "/api/version", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), app.Version)

	status, env = s.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, code.ErrorNotFoundAPI.Code(), env.Code)
}

type frameRecorder struct {
	gws.BuiltinEventHandler
	frames chan string
}

func (h *frameRecorder) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.frames <- message.Data.String()
}

func TestRoomEvents_VersionsChanged(t *testing.T) {
	s := newTestServer(t)

	rec := &frameRecorder{frames: make(chan string, 16)}
	addr := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/rooms/events?roomId=live&userEmail=a@example.com"
	conn, _, err := gws.NewClient(rec, &gws.ClientOption{Addr: addr})
	require.NoError(t, err)
	go conn.ReadLoop()
	defer conn.WriteClose(1000, nil)

	require.Eventually(t, func() bool {
		return s.wss.RoomSize("live") == 1
	}, 3*time.Second, 10*time.Millisecond)

	s.save(t, "live", `{"root":{}}`)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case f := <-rec.frames:
			if strings.HasPrefix(f, "VersionsChanged|") {
				assert.Contains(t, f, `"roomId":"live"`)
				assert.Contains(t, f, `"version":1`)
				return
			}
		case <-deadline:
			t.Fatal("no VersionsChanged frame")
		}
	}
}

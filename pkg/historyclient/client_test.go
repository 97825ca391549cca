package historyclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	reply    func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), string(b)})
	f.mu.Unlock()
	f.reply(w, r)
}

func (f *fakeServer) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newFake(t *testing.T, reply func(w http.ResponseWriter, r *http.Request)) (*fakeServer, *Client) {
	t.Helper()
	f := &fakeServer{reply: reply}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return f, c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestClient_SaveVersion(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"code":1,"status":true,"message":"Success","data":{"ok":true,"id":11,"version":3}}`)
	})

	res, err := c.SaveVersion(context.Background(), SaveRequest{
		RoomID:      "r1",
		AuthorEmail: "a@example.com",
		Content:     json.RawMessage(`{"root":{}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.ID)
	assert.Equal(t, int64(3), res.Version)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/versions", req.path)
	assert.Equal(t, "application/json", req.contentType)
	assert.JSONEq(t, `{"roomId":"r1","authorEmail":"a@example.com","content":{"root":{}}}`, req.body)

	_, err = c.SaveVersion(context.Background(), SaveRequest{RoomID: "r1", AuthorEmail: "a@example.com"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClient_SaveVersionBeacon(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"code":1,"status":true,"data":{"ok":true,"id":1,"version":1}}`)
	})

	c.SaveVersionBeacon(SaveRequest{RoomID: "r1", AuthorEmail: "a@example.com", Content: json.RawMessage(`{"root":{}}`)})
	c.WaitBeacons()

	req := f.last()
	assert.Equal(t, "text/plain;charset=UTF-8", req.contentType)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.body), &body))
	assert.Equal(t, `{"root":{}}`, body["content"], "beacon content travels as a serialized string")

	// invalid beacons are dropped without a request
	c.SaveVersionBeacon(SaveRequest{RoomID: "r1"})
	c.WaitBeacons()
	f.mu.Lock()
	assert.Len(t, f.requests, 1)
	f.mu.Unlock()
}

func TestClient_ListAndGet(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("versionId") != "" {
			writeJSON(w, 200, `{"code":1,"status":true,"data":{"id":5,"roomId":"r1","version":2,"authorEmail":"a@example.com","createdAt":"2026-01-02T03:04:05.000Z","content":{"root":{"children":[]}}}}`)
			return
		}
		writeJSON(w, 200, `{"code":1,"status":true,"data":[
			{"id":5,"roomId":"r1","version":2,"authorEmail":"a@example.com","createdAt":"2026-01-02T03:04:05.000Z"},
			{"id":4,"roomId":"r1","version":1,"authorEmail":"a@example.com","createdAt":"2026-01-02T03:00:00.000Z"}]}`)
	})
	ctx := context.Background()

	list, err := c.ListVersions(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].Version)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), list[0].CreatedAt.UTC())

	v, err := c.GetVersion(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "r1", v.RoomID)
	assert.JSONEq(t, `{"root":{"children":[]}}`, string(v.Content))

	_, err = c.ListVersions(ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = c.GetVersion(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"ownership", 400, `{"code":2002,"status":false,"message":"Version does not belong to room","details":["room r2"]}`, ErrOwnershipMismatch},
		{"not found", 404, `{"code":2001,"status":false,"message":"Version not found"}`, ErrNotFound},
		{"validation", 400, `{"code":400,"status":false,"message":"Invalid parameters","details":"roomId is required"}`, ErrValidation},
		{"unavailable", 503, `{"code":1002,"status":false,"message":"Version store not configured or unreachable"}`, ErrStoreUnavailable},
		{"conflict", 409, `{"code":2003,"status":false,"message":"conflict"}`, ErrConflict},
		{"rate limited", 429, `{"code":429,"status":false,"message":"Too many requests"}`, ErrTransient},
		{"db error", 500, `{"code":1001,"status":false,"message":"Database query failed"}`, ErrServer},
		{"proxy page", 502, `<html>bad gateway</html>`, ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.Revert(context.Background(), RevertRequest{RoomID: "r1", VersionID: 1, AuthorEmail: "a@example.com"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.HTTPStatus)
		})
	}
}

func TestClient_ErrorDetails(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"code":2002,"status":false,"message":"Version does not belong to room","details":["a","b"]}`)
	})
	_, err := c.Revert(context.Background(), RevertRequest{RoomID: "r1", VersionID: 1, AuthorEmail: "a@example.com"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 2002, apiErr.Code)
	assert.Equal(t, "a,b", apiErr.Details)
	assert.Contains(t, apiErr.Error(), "Version does not belong to room")
}

func TestClient_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = c.ListVersions(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestClient_DiffDocumentAndOps(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/versions/diff":
			writeJSON(w, 200, `{"code":1,"status":true,"data":{"roomId":"r1","fromId":1,"toId":2,"unchanged":false,"diffs":[{"Type":0,"Text":"Hello"},{"Type":1,"Text":" world"}]}}`)
		case "/api/documents":
			writeJSON(w, 200, `{"code":1,"status":true,"data":{"roomId":"r1","title":"Untitled","latestVersion":2,"versionCount":2}}`)
		default:
			writeJSON(w, 200, `{"code":1,"status":true,"data":{"ok":true,"id":9}}`)
		}
	})
	ctx := context.Background()

	d, err := c.Diff(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, d.Diffs, 2)
	assert.Equal(t, " world", d.Diffs[1].Text)
	assert.Equal(t, "fromId=1&toId=2", f.last().query)

	doc, err := c.Document(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", doc.Title)
	assert.Equal(t, int64(2), doc.VersionCount)

	require.NoError(t, c.AppendOp(ctx, "r1", "a@example.com", json.RawMessage(`{"type":"insert"}`)))
	assert.Equal(t, "/api/ops", f.last().path)
}

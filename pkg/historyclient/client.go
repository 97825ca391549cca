// Package historyclient is the HTTP client for the version history service
// Package historyclient 版本历史服务的 HTTP 客户端
package historyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout 普通请求的默认超时
	DefaultTimeout = 10 * time.Second
	// DefaultBeaconTimeout 最终保存请求的默认超时
	DefaultBeaconTimeout = 5 * time.Second

	maxResponseBytes = 32 << 20
)

// Client talks to the REST surface under <baseURL>/api
// Client 访问 <baseURL>/api 下的 REST 接口
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	logger        *zap.Logger
	beaconTimeout time.Duration
	lang          string

	beacons sync.WaitGroup
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用自定义的 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger 设置日志器
func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.logger = lg
		}
	}
}

// WithBeaconTimeout 设置最终保存请求的超时
func WithBeaconTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.beaconTimeout = d
		}
	}
}

// WithLang sets the lang header so server messages come back in that language
// WithLang 设置 lang 请求头，服务端消息按该语言返回
func WithLang(lang string) Option {
	return func(c *Client) {
		c.lang = lang
	}
}

// New 创建客户端，baseURL 形如 http://127.0.0.1:9000
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "historyclient: invalid base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("historyclient: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL:       u,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		logger:        zap.NewNop(),
		beaconTimeout: DefaultBeaconTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SaveVersion POST /api/versions
func (c *Client) SaveVersion(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if err := checkSave(req); err != nil {
		return nil, err
	}
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, err
	}
	out := &SaveResult{}
	if err := c.do(ctx, http.MethodPost, "/api/versions", nil, "application/json", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveVersionBeacon sends the save as a text/plain body with the content serialized as a
// string, on its own goroutine and timeout. Failures are logged at debug level only.
// SaveVersionBeacon 以 text/plain 发送保存请求，content 序列化为字符串，
// 使用独立的 goroutine 与超时，失败只记录 debug 日志
func (c *Client) SaveVersionBeacon(req SaveRequest) {
	if checkSave(req) != nil {
		return
	}
	payload := struct {
		RoomID      string `json:"roomId"`
		Title       string `json:"title,omitempty"`
		AuthorEmail string `json:"authorEmail"`
		Content     string `json:"content"`
	}{req.RoomID, req.Title, req.AuthorEmail, string(req.Content)}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return
	}

	c.beacons.Add(1)
	go func() {
		defer c.beacons.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.beaconTimeout)
		defer cancel()
		if err := c.do(ctx, http.MethodPost, "/api/versions", nil, "text/plain;charset=UTF-8", body, nil); err != nil {
			c.logger.Debug("historyclient beacon save failed", zap.String("roomId", req.RoomID), zap.Error(err))
		}
	}()
}

// WaitBeacons blocks until in-flight beacon saves finish; a process about to exit calls it
// WaitBeacons 阻塞直到进行中的最终保存完成，进程退出前调用
func (c *Client) WaitBeacons() {
	c.beacons.Wait()
}

// ListVersions GET /api/versions?roomId=
func (c *Client) ListVersions(ctx context.Context, roomID string) ([]VersionSummary, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	var out []VersionSummary
	if err := c.do(ctx, http.MethodGet, "/api/versions", url.Values{"roomId": {roomID}}, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVersion GET /api/versions?versionId=
func (c *Client) GetVersion(ctx context.Context, versionID int64) (*Version, error) {
	if versionID <= 0 {
		return nil, fmt.Errorf("%w: versionId must be positive", ErrValidation)
	}
	out := &Version{}
	q := url.Values{"versionId": {strconv.FormatInt(versionID, 10)}}
	if err := c.do(ctx, http.MethodGet, "/api/versions", q, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Revert POST /api/versions/revert
func (c *Client) Revert(ctx context.Context, req RevertRequest) (*RevertResult, error) {
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.AuthorEmail) == "" || req.VersionID <= 0 {
		return nil, fmt.Errorf("%w: roomId, versionId and authorEmail are required", ErrValidation)
	}
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, err
	}
	out := &RevertResult{}
	if err := c.do(ctx, http.MethodPost, "/api/versions/revert", nil, "application/json", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diff GET /api/versions/diff
func (c *Client) Diff(ctx context.Context, fromID, toID int64) (*DiffResult, error) {
	q := url.Values{
		"fromId": {strconv.FormatInt(fromID, 10)},
		"toId":   {strconv.FormatInt(toID, 10)},
	}
	out := &DiffResult{}
	if err := c.do(ctx, http.MethodGet, "/api/versions/diff", q, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Document GET /api/documents?roomId=
func (c *Client) Document(ctx context.Context, roomID string) (*Document, error) {
	out := &Document{}
	if err := c.do(ctx, http.MethodGet, "/api/documents", url.Values{"roomId": {roomID}}, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendOp POST /api/ops
func (c *Client) AppendOp(ctx context.Context, roomID, userEmail string, op json.RawMessage) error {
	body, err := sonic.Marshal(struct {
		RoomID    string          `json:"roomId"`
		UserEmail string          `json:"userEmail"`
		Op        json.RawMessage `json:"op"`
	}{roomID, userEmail, op})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/ops", nil, "application/json", body, nil)
}

func checkSave(req SaveRequest) error {
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.AuthorEmail) == "" || len(bytes.TrimSpace(req.Content)) == 0 {
		return fmt.Errorf("%w: roomId, authorEmail and content are required", ErrValidation)
	}
	return nil
}

// envelope matches both the success body and the error body rendered by the server
type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.lang != "" {
		req.Header.Set("lang", c.lang)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return newAPIError(resp.StatusCode, 0, http.StatusText(resp.StatusCode), strings.TrimSpace(string(raw)))
		}
		return errors.Wrap(err, "historyclient: decode response")
	}
	if resp.StatusCode >= 400 || !env.Status {
		return newAPIError(resp.StatusCode, env.Code, env.Message, detailsString(env.Details))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "historyclient: decode data")
	}
	return nil
}

// detailsString accepts the string form of a success body and the array form of an error body
func detailsString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if sonic.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if sonic.Unmarshal(raw, &list) == nil {
		return strings.Join(list, ",")
	}
	return string(raw)
}

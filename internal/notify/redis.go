package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannelPrefix channel name is prefix + roomId
// DefaultChannelPrefix 频道名为前缀加房间ID
const DefaultChannelPrefix = "doc-history:room:"

// RedisHub fans events out through redis pub/sub so every server instance sees them
// RedisHub 通过 redis 发布订阅分发事件，使所有服务实例都能收到
type RedisHub struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	owned  bool

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedisHub connects to redisURL (redis://host:port/db)
// NewRedisHub 连接 redisURL（redis://host:port/db）
func NewRedisHub(redisURL, prefix string, lg *zap.Logger) (*RedisHub, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	h := NewRedisHubWithClient(client, prefix, lg)
	h.owned = true
	return h, nil
}

// NewRedisHubWithClient uses an existing client; Close leaves the client open
// NewRedisHubWithClient 使用已有客户端；Close 不会关闭该客户端
func NewRedisHubWithClient(client *redis.Client, prefix string, lg *zap.Logger) *RedisHub {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &RedisHub{
		client: client,
		prefix: prefix,
		logger: lg,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

func (h *RedisHub) channel(roomID string) string {
	return h.prefix + roomID
}

func (h *RedisHub) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := h.client.Publish(ctx, h.channel(ev.RoomID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrHubClosed
	}
	h.mu.Unlock()

	var ps *redis.PubSub
	if roomID == AllRooms {
		ps = h.client.PSubscribe(ctx, h.prefix+"*")
	} else {
		ps = h.client.Subscribe(ctx, h.channel(roomID))
	}
	// wait for the subscription to be confirmed so no event published afterwards is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	h.mu.Lock()
	h.subs[ps] = struct{}{}
	h.mu.Unlock()

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
				h.logger.Warn("notify: bad payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ev.RoomID == "" {
				ev.RoomID = strings.TrimPrefix(msg.Channel, h.prefix)
			}
			select {
			case out <- ev:
			default:
				h.logger.Warn("notify subscriber is slow, event dropped",
					zap.String(logger.FieldRoomID, ev.RoomID))
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ps)
			h.mu.Unlock()
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}

func (h *RedisHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*redis.PubSub, 0, len(h.subs))
	for ps := range h.subs {
		subs = append(subs, ps)
	}
	h.subs = map[*redis.PubSub]struct{}{}
	h.mu.Unlock()

	for _, ps := range subs {
		_ = ps.Close()
	}
	if h.owned {
		return h.client.Close()
	}
	return nil
}

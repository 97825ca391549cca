// Package writequeue provides keyed single-writer queues
// Package writequeue 提供按键划分的单写者队列
// Writes sharing a key (a room id) run one at a time in FIFO order, which makes
// read-max-then-insert version numbering safe inside one process
// 相同键（房间 ID）的写操作按 FIFO 顺序逐个执行，使进程内的“读取最大值再插入”版本编号安全
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull 房间的写队列已满
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed 写队列管理器已关闭
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout 等待写操作结果超时
	ErrWriteTimeout = errors.New("write operation timeout")
	// ErrWritePanic returned when the write operation panicked
	// ErrWritePanic 写操作发生 panic
	ErrWritePanic = errors.New("write operation panicked")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity 每个房间最多排队的写操作，默认 100
	QueueCapacity int
	// WriteTimeout 调用方等待结果的最长时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout 房间通道空闲多久后回收，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// lane is the single writer of one room
// lane 单个房间的写通道
type lane struct {
	key      string
	ops      chan writeOp
	lastUsed atomic.Int64
	busy     atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (l *lane) retire() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Manager owns one lane per active room
// Manager 为每个活跃房间维护一个写通道
type Manager struct {
	config Config
	logger *zap.Logger

	// mu guards lanes and closed; enqueueing happens under it so a lane is
	// never retired between lookup and send
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool

	executed atomic.Int64
	rejected atomic.Int64

	quit        chan struct{}
	quitOnce    sync.Once
	janitorDone chan struct{}
}

// New creates write queue manager
// New 创建写队列管理器，cfg 为 nil 时使用默认配置，logger 为 nil 时使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:      c,
		logger:      logger,
		lanes:       make(map[string]*lane),
		quit:        make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go m.janitor()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))
	return m
}

// Execute runs fn on the room's lane and waits for its result.
// Writes for the same key run one at a time in submission order.
// Execute 在房间的写通道上执行 fn 并等待结果，相同键的写操作按提交顺序逐个执行
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	op := writeOp{ctx: ctx, fn: fn, result: make(chan error, 1)}
	if err := m.enqueue(key, op); err != nil {
		m.rejected.Add(1)
		return err
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	case <-m.quit:
		return ErrWriteQueueClosed
	}
}

func (m *Manager) enqueue(key string, op writeOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrWriteQueueClosed
	}

	l, ok := m.lanes[key]
	if !ok {
		l = &lane{
			key:  key,
			ops:  make(chan writeOp, m.config.QueueCapacity),
			stop: make(chan struct{}),
			done: make(chan struct{}),
		}
		m.lanes[key] = l
		go m.drive(l)
		m.logger.Debug("write lane opened", zap.String("key", key))
	}
	l.lastUsed.Store(time.Now().UnixNano())

	select {
	case l.ops <- op:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

// drive executes a lane's writes until it is retired, then finishes what is queued
// drive 执行写通道中的操作，直到被回收，然后完成已排队的操作
func (m *Manager) drive(l *lane) {
	defer close(l.done)
	for {
		select {
		case op := <-l.ops:
			m.apply(l, op)
		case <-l.stop:
			for {
				select {
				case op := <-l.ops:
					m.apply(l, op)
				default:
					m.logger.Debug("write lane closed", zap.String("key", l.key))
					return
				}
			}
		}
	}
}

func (m *Manager) apply(l *lane, op writeOp) {
	l.busy.Store(true)
	l.lastUsed.Store(time.Now().UnixNano())
	defer func() {
		l.lastUsed.Store(time.Now().UnixNano())
		l.busy.Store(false)
	}()
	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}
	op.result <- m.run(l.key, op.fn)
	m.executed.Add(1)
}

// run executes fn and turns a panic into ErrWritePanic so the lane survives
// run 执行 fn，并将 panic 转为 ErrWritePanic，保证写通道存活
func (m *Manager) run(key string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("write operation panic",
				zap.String("key", key),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = ErrWritePanic
		}
	}()
	return fn()
}

// janitor retires lanes that stayed empty for IdleTimeout
// janitor 回收空闲超过 IdleTimeout 的写通道
func (m *Manager) janitor() {
	defer close(m.janitorDone)
	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.retireIdle(time.Now())
		}
	}
}

func (m *Manager) retireIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for key, l := range m.lanes {
		idle := now.Sub(time.Unix(0, l.lastUsed.Load()))
		// a running write keeps the lane, otherwise a second lane could write the same room
		if idle < m.config.IdleTimeout || len(l.ops) > 0 || l.busy.Load() {
			continue
		}
		delete(m.lanes, key)
		l.retire()
		m.logger.Debug("retired idle write lane", zap.String("key", key), zap.Duration("idle", idle))
	}
}

// Shutdown stops accepting writes and waits for queued ones until ctx expires
// Shutdown 停止接收写操作，并在 ctx 到期前等待已排队的操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	lanes := make([]*lane, 0, len(m.lanes))
	for _, l := range m.lanes {
		lanes = append(lanes, l)
		l.retire()
	}
	m.lanes = make(map[string]*lane)
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down", zap.Int("lanes", len(lanes)))

	drained := make(chan struct{})
	go func() {
		for _, l := range lanes {
			<-l.done
		}
		close(drained)
	}()

	defer m.quitOnce.Do(func() { close(m.quit) })
	select {
	case <-drained:
		m.logger.Info("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout, forcing cancellation")
		return ctx.Err()
	}
}

// IsClosed 返回管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Metrics write queue manager metrics, published under /debug/vars
// Metrics 写队列指标，发布在 /debug/vars
type Metrics struct {
	QueueCapacity int   `json:"queueCapacity"`
	ActiveLanes   int   `json:"activeLanes"`
	PendingWrites int   `json:"pendingWrites"`
	Executed      int64 `json:"executed"`
	Rejected      int64 `json:"rejected"`
	IsClosed      bool  `json:"isClosed"`
}

// GetMetrics 获取当前指标
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := 0
	for _, l := range m.lanes {
		pending += len(l.ops)
	}
	return Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveLanes:   len(m.lanes),
		PendingWrites: pending,
		Executed:      m.executed.Load(),
		Rejected:      m.rejected.Load(),
		IsClosed:      m.closed,
	}
}

// Package dao 实现数据访问层
package dao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/haierkeys/doc-history-service/internal/model"
	"github.com/haierkeys/doc-history-service/pkg/fileurl"
	"github.com/haierkeys/doc-history-service/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type sqlite | mysql | postgres
	Type        string
	Path        string
	UserName    string
	Password    string
	Host        string
	Port        int
	Name        string
	AutoMigrate bool
	Charset     string
	ParseTime   bool
	SSLMode     string
	// Replicas read-only replicas, same type as the source: sqlite paths or host[:port] for mysql/postgres
	// Replicas 只读副本，与主库同类型：sqlite 为路径，mysql/postgres 为 host[:port]
	Replicas        []string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RunMode         string
}

// ErrUnsupportedDatabase 不支持的数据库类型
var ErrUnsupportedDatabase = errors.New("unsupported database type")

// Dao 数据访问对象，持有数据库连接与按房间串行的写队列
type Dao struct {
	Db            *gorm.DB
	writeQueue    *writequeue.Manager
	logger        *zap.Logger
	insertRetries int
	onRetry       func(roomID string, attempt int)
}

// Option Dao 选项
type Option func(*Dao)

// WithLogger 设置日志器
func WithLogger(lg *zap.Logger) Option {
	return func(d *Dao) {
		if lg != nil {
			d.logger = lg
		}
	}
}

// WithWriteQueue 设置写队列
func WithWriteQueue(wq *writequeue.Manager) Option {
	return func(d *Dao) { d.writeQueue = wq }
}

// WithInsertRetries sets how many times a version insert is tried on a duplicate number
// WithInsertRetries 设置版本号冲突时插入的最大尝试次数
func WithInsertRetries(n int) Option {
	return func(d *Dao) {
		if n > 0 {
			d.insertRetries = n
		}
	}
}

// WithRetryHook is called every time a version number was taken and the insert is retried
// WithRetryHook 在版本号被占用并重试插入时调用
func WithRetryHook(fn func(roomID string, attempt int)) Option {
	return func(d *Dao) { d.onRetry = fn }
}

func New(db *gorm.DB, opts ...Option) *Dao {
	d := &Dao{Db: db, logger: zap.NewNop(), insertRetries: 5}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dao) DB() *gorm.DB {
	return d.Db
}

func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// ExecuteWrite runs fn on the room's single-writer queue; without a queue it runs inline
// ExecuteWrite 在房间的单写者队列上执行 fn；未配置队列时直接执行
func (d *Dao) ExecuteWrite(ctx context.Context, roomID string, fn func(db *gorm.DB) error) error {
	if d.writeQueue == nil {
		return fn(d.Db)
	}
	return d.writeQueue.Execute(ctx, roomID, func() error {
		return fn(d.Db)
	})
}

// AutoMigrate 自动迁移表结构
func (d *Dao) AutoMigrate() error {
	return model.AutoMigrate(d.Db)
}

// Ping 检查数据库连接
func (d *Dao) Ping(ctx context.Context) error {
	sqlDB, err := d.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsDuplicateKey reports a unique constraint violation from any supported driver
// IsDuplicateKey 判断是否为任一驱动的唯一约束冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// IsUnavailable reports errors meaning the store cannot be reached at all
// IsUnavailable 判断是否为存储不可达类错误
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, writequeue.ErrWriteQueueClosed) || errors.Is(err, writequeue.ErrWriteQueueFull) ||
		errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, ErrUnsupportedDatabase) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "no such host")
}

// NewDBEngineWithConfig 使用注入的配置创建数据库连接
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	if lg == nil {
		lg = zap.NewNop()
	}

	dialector, err := dialectorFor(c, "")
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open database")
	}
	if c.RunMode == "debug" {
		db.Config.Logger = logger.Default.LogMode(logger.Info)
	}

	if len(c.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(c.Replicas))
		for _, r := range c.Replicas {
			rd, err := dialectorFor(c, r)
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, rd)
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, pkgerrors.Wrap(err, "register replicas")
		}
		lg.Info("database read replicas registered", zap.Int("count", len(replicas)))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get sql.DB")
	}

	// SetMaxIdleConns 用于设置连接池中空闲连接的最大数量。
	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	// SetMaxOpenConns 设置打开数据库连接的最大数量。
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	// SetConnMaxLifetime 设置了连接可复用的最大时间。
	if c.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	if c.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)
	}

	if err := db.Use(&gormTracing.OpentracingPlugin{}); err != nil {
		lg.Warn("gorm tracing plugin not registered", zap.Error(err))
	}

	if c.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			return nil, pkgerrors.Wrap(err, "auto migrate")
		}
	}

	lg.Info("database connected", zap.String("type", c.Type))
	return db, nil
}

// dialectorFor builds the dialector of the source (target == "") or of a replica
// dialectorFor 构建主库（target 为空）或副本的方言
func dialectorFor(c DatabaseConfig, target string) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		host := c.Host
		if target != "" {
			host = target
		} else if c.Port > 0 && !strings.Contains(host, ":") {
			host = fmt.Sprintf("%s:%d", host, c.Port)
		}
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			host,
			c.Name,
			charset,
			c.ParseTime,
		)), nil
	case "postgres":
		host, port := c.Host, c.Port
		if target != "" {
			host, port = target, 0
		}
		if h, p, ok := strings.Cut(host, ":"); ok {
			host = h
			fmt.Sscanf(p, "%d", &port)
		}
		if port == 0 {
			port = 5432
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgres.Open(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			host, port, c.UserName, c.Password, c.Name, sslMode)), nil
	case "sqlite", "":
		path := c.Path
		if target != "" {
			path = target
		}
		if path == "" {
			path = "storage/database/db.sqlite3"
		}
		if !strings.HasPrefix(path, "file:") && path != ":memory:" && !fileurl.IsExist(path) {
			if err := fileurl.CreatePath(path, os.ModePerm); err != nil {
				return nil, pkgerrors.Wrap(err, "create sqlite directory")
			}
		}
		if !strings.Contains(path, "?") && path != ":memory:" {
			path += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		return sqlite.Open(path), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, c.Type)
}

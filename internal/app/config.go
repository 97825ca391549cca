// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/internal/service"
	"github.com/haierkeys/doc-history-service/pkg/limiter"
	"github.com/haierkeys/doc-history-service/pkg/storage"
	"github.com/haierkeys/doc-history-service/pkg/util"
	"github.com/haierkeys/doc-history-service/pkg/workerpool"
	"github.com/haierkeys/doc-history-service/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string         `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	App      AppSettings    `yaml:"app"`
	Notify   NotifyConfig   `yaml:"notify"`
	Tracer   TracerConfig   `yaml:"tracer"`
	Task     TaskConfig     `yaml:"task"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"warn"`
	// File 日志文件路径，默认为 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口
	HttpPort string `yaml:"http-port" default:":9000"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有 HTTP 监听地址，为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:"127.0.0.1:9001"`
	// DefaultLang 默认响应语言 en / zh_cn
	DefaultLang string `yaml:"default-lang" default:"en"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite / mysql / postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path string `yaml:"path" default:"storage/database/db.sqlite3"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// Port 端口，0 使用驱动默认端口
	Port int `yaml:"port"`
	// Name 数据库名
	Name string `yaml:"name"`
	// SSLMode postgres sslmode
	SSLMode string `yaml:"ssl-mode"`
	// Replicas 只读副本（sqlite 为路径，mysql/postgres 为 host[:port]）
	Replicas []string `yaml:"replicas"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool `yaml:"auto-migrate" default:"true"`
	// Charset 字符集
	Charset string `yaml:"charset"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time"`
	// MaxIdleConns 最大闲置连接数，默认 10
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，默认 100
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时），默认 30m
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期，支持格式：10m（分钟）、1h（小时），默认 10m
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认上下文超时时间（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"60"`
	// VersionInsertRetries 版本号冲突时的最大插入次数
	VersionInsertRetries int `yaml:"version-insert-retries" default:"5"`
	// OpListDefaultLimit 操作日志默认返回条数
	OpListDefaultLimit int `yaml:"op-list-default-limit" default:"100"`
	// OpListMaxLimit 操作日志最大返回条数
	OpListMaxLimit int `yaml:"op-list-max-limit" default:"500"`

	// RateLimitCapacity 每个接口前缀的令牌桶容量，0 表示不限流
	RateLimitCapacity int64 `yaml:"rate-limit-capacity" default:"200"`
	// RateLimitFillInterval 令牌补充间隔
	RateLimitFillInterval string `yaml:"rate-limit-fill-interval" default:"1s"`

	// Worker Pool 配置
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"16"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"1000"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"100"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// NotifyConfig 房间事件配置
type NotifyConfig struct {
	// Driver memory（单实例）或 redis（多实例共享）
	Driver string `yaml:"driver" default:"memory"`
	// RedisURL redis 连接地址，如 redis://localhost:6379/0
	RedisURL string `yaml:"redis-url" default:"redis://127.0.0.1:6379/0"`
	// ChannelPrefix redis 频道前缀
	ChannelPrefix string `yaml:"channel-prefix" default:"doc-history:room:"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
	// JaegerAgent jaeger agent 地址 host:port，为空时不上报
	JaegerAgent string `yaml:"jaeger-agent"`
	// ServiceName 上报到 jaeger 的服务名
	ServiceName string `yaml:"service-name" default:"doc-history-service"`
}

// TaskConfig 定时任务配置
type TaskConfig struct {
	// OpRetentionTime 操作日志保留时间，0 或空表示永久保留
	OpRetentionTime string `yaml:"op-retention-time" default:"30d"`
	// OpCleanupSpec 操作日志清理的 cron 表达式
	OpCleanupSpec string `yaml:"op-cleanup-spec" default:"@every 1h"`
}

// ArchiveConfig 版本归档配置
type ArchiveConfig struct {
	// Enabled 是否启用定时归档
	Enabled bool `yaml:"enabled"`
	// Spec 归档任务的 cron 表达式
	Spec string `yaml:"spec" default:"@daily"`
	// Prefix 归档对象键前缀
	Prefix string `yaml:"prefix" default:"archive"`
	// Storage 归档写入的存储后端
	Storage storage.Config `yaml:"storage"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	c, err := ParseConfig(file)
	if err != nil {
		return nil, realpath, err
	}
	c.File = realpath
	return c, realpath, nil
}

// ParseConfig 解析 YAML 配置内容并填充默认值
func ParseConfig(data []byte) (*AppConfig, error) {
	c := new(AppConfig)

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	// defaults.Set 只有在字段为该类型的零值时才会填充
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "re-set default config failed")
	}

	return c, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}

	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.App.WriteQueueIdleTime != "" {
		if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}

	return cfg
}

// GetDatabaseConfig 转换为 dao 层的数据库配置
func (c *AppConfig) GetDatabaseConfig() dao.DatabaseConfig {
	d := c.Database
	return dao.DatabaseConfig{
		Type:            d.Type,
		Path:            d.Path,
		UserName:        d.UserName,
		Password:        d.Password,
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		AutoMigrate:     d.AutoMigrate,
		Charset:         d.Charset,
		ParseTime:       d.ParseTime,
		SSLMode:         d.SSLMode,
		Replicas:        d.Replicas,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: util.DurationOr(d.ConnMaxLifetime, 30*time.Minute),
		ConnMaxIdleTime: util.DurationOr(d.ConnMaxIdleTime, 10*time.Minute),
		RunMode:         c.Server.RunMode,
	}
}

// GetServiceConfig 提取 Service 层需要的配置
func (c *AppConfig) GetServiceConfig() *service.ServiceConfig {
	return &service.ServiceConfig{
		App: service.AppServiceConfig{
			OpListDefaultLimit: c.App.OpListDefaultLimit,
			OpListMaxLimit:     c.App.OpListMaxLimit,
			OpRetentionTime:    c.Task.OpRetentionTime,
		},
	}
}

// GetContextTimeout 获取请求上下文超时时间
func (c *AppConfig) GetContextTimeout() time.Duration {
	if c.App.DefaultContextTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.App.DefaultContextTimeout) * time.Second
}

// GetRateLimitRules 为每个接口前缀生成令牌桶规则，容量为 0 时返回空
func (c *AppConfig) GetRateLimitRules(prefixes ...string) []limiter.BucketRule {
	if c.App.RateLimitCapacity <= 0 {
		return nil
	}
	interval := util.DurationOr(c.App.RateLimitFillInterval, time.Second)
	rules := make([]limiter.BucketRule, 0, len(prefixes))
	for _, p := range prefixes {
		rules = append(rules, limiter.BucketRule{
			Key:          p,
			FillInterval: interval,
			Capacity:     c.App.RateLimitCapacity,
			Quantum:      c.App.RateLimitCapacity,
		})
	}
	return rules
}

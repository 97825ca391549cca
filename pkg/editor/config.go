package editor

import (
	"time"

	"github.com/creasty/defaults"
)

// Config 编辑器会话配置，零值字段使用默认值
type Config struct {
	// AutosaveInterval 自动保存间隔
	AutosaveInterval time.Duration `default:"10s"`
	// LoadDelay delay before the latest version is loaded at session open
	// LoadDelay 会话打开后加载最新版本前的等待时间
	LoadDelay time.Duration `default:"500ms"`
	// LoadingDelay guard before a restore lands in an editor that is still syncing
	// LoadingDelay 编辑器仍在同步时恢复前的等待时间
	LoadingDelay time.Duration `default:"800ms"`
	// ReadyDelay guard before a restore lands in a ready editor
	// ReadyDelay 编辑器已就绪时恢复前的等待时间
	ReadyDelay time.Duration `default:"400ms"`
	// FetchConcurrency 显示过滤时并发拉取版本的数量
	FetchConcurrency int `default:"4"`
	// PresenceWindow suppresses a repeated (type, user) announcement
	// PresenceWindow 相同（类型, 用户）通知的去重时间窗口
	PresenceWindow time.Duration `default:"5s"`
	// PresenceLeaveGrace ignores a leave that follows the same user's join this closely
	// PresenceLeaveGrace 同一用户加入后在该时间内的离开通知会被忽略
	PresenceLeaveGrace time.Duration `default:"1s"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

func (c Config) withDefaults() Config {
	_ = defaults.Set(&c)
	return c
}

package editor

import (
	"encoding/json"
	"sync"

	"github.com/haierkeys/doc-history-service/pkg/content"
)

// Decision 变更检测结果
type Decision int

const (
	// Unchanged 纯文本签名与上次保存相同，跳过保存
	Unchanged Decision = iota
	// Changed 签名不同，需要保存
	Changed
)

func (d Decision) String() string {
	if d == Changed {
		return "changed"
	}
	return "unchanged"
}

// ChangeDetector remembers the plain-text signature of the last scheduled save of one session.
// Formatting-only edits keep the signature and are not saved.
// ChangeDetector 记录单个会话最近一次计划保存的纯文本签名，仅格式变化不会触发保存
type ChangeDetector struct {
	mu   sync.Mutex
	last string
	has  bool
}

// NewChangeDetector 创建变更检测器
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Check compares the snapshot's signature with the remembered one and remembers it when it differs
// Check 比较快照签名与已记录签名，不同时记录新签名
func (d *ChangeDetector) Check(snapshot json.RawMessage) (Decision, string) {
	sig := content.Signature(snapshot)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.has && d.last == sig {
		return Unchanged, sig
	}
	d.last, d.has = sig, true
	return Changed, sig
}

// Forget drops the remembered signature if it is still sig, so a failed save is retried
// Forget 若已记录签名仍为 sig 则清除，使失败的保存在下次被重试
func (d *ChangeDetector) Forget(sig string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.has && d.last == sig {
		d.last, d.has = "", false
	}
}

// Seed remembers the signature of content already persisted
// Seed 记录已持久化内容的签名
func (d *ChangeDetector) Seed(snapshot json.RawMessage) string {
	sig := content.Signature(snapshot)
	d.mu.Lock()
	d.last, d.has = sig, true
	d.mu.Unlock()
	return sig
}

// Last 返回当前记录的签名
func (d *ChangeDetector) Last() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.has
}

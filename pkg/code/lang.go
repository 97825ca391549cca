package code

import (
	"errors"
	"strings"
	"sync/atomic"
)

// lang stores the English and Chinese text of a message
// lang 存储消息的英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

const FALLBACK_LNG = "en"

var supportedLanguages = []string{"en", "zh_cn"}

// defaultLng is the process default, used when a request carries no language
// defaultLng 进程默认语言，请求未携带语言时使用
var defaultLng atomic.Value

func init() {
	defaultLng.Store(FALLBACK_LNG)
}

// NormalizeLang turns "zh-CN" / "ZH_cn" style tags into the internal form
// NormalizeLang 将 "zh-CN" / "ZH_cn" 形式的标签转换为内部形式
func NormalizeLang(language string) string {
	language = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "-", "_"))
	if language == "zh" {
		return "zh_cn"
	}
	return language
}

// IsSupportedLang reports whether the language has messages
// IsSupportedLang 判断语言是否受支持
func IsSupportedLang(language string) bool {
	language = NormalizeLang(language)
	for _, l := range supportedLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// In returns the message in the given language, falling back to English
// In 返回指定语言的消息，找不到时回退到英文
func (l lang) In(language string) string {
	switch NormalizeLang(language) {
	case "zh_cn":
		if l.zh_cn != "" {
			return l.zh_cn
		}
	}
	return l.en
}

// GetMessage returns the message in the process default language
// GetMessage 使用进程默认语言返回消息
func (l lang) GetMessage() string {
	return l.In(GetGlobalDefaultLang())
}

// GetSupportedLanguages returns all languages that have messages
// GetSupportedLanguages 返回支持的所有语言
func GetSupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// SetGlobalDefaultLang sets the process default language
// SetGlobalDefaultLang 设置进程默认语言
func SetGlobalDefaultLang(language string) error {
	if IsSupportedLang(language) {
		defaultLng.Store(NormalizeLang(language))
		return nil
	}
	defaultLng.Store(FALLBACK_LNG)
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the process default language
// GetGlobalDefaultLang 获取进程默认语言
func GetGlobalDefaultLang() string {
	if v, ok := defaultLng.Load().(string); ok && v != "" {
		return v
	}
	return FALLBACK_LNG
}

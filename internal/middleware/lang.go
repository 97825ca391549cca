package middleware

import (
	"github.com/haierkeys/doc-history-service/pkg/app"
	"github.com/haierkeys/doc-history-service/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangWithTranslator 创建带翻译器的语言中间件（支持依赖注入）
// The language is stored per request; the process default is left untouched
// 语言保存在请求上下文中，不修改进程默认语言
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {

	return func(c *gin.Context) {

		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		}

		lang = code.NormalizeLang(lang)
		if !code.IsSupportedLang(lang) {
			lang = code.GetGlobalDefaultLang()
		}
		c.Set(app.LangKey, lang)

		if uni != nil {
			locale := "en"
			if lang == "zh_cn" {
				locale = "zh"
			}
			if trans, found := uni.GetTranslator(locale); found {
				c.Set(app.TransKey, trans)
			}
		}

		c.Next()
	}
}

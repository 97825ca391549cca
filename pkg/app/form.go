package app

import (
	"bytes"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// TransKey is the gin.Context key holding the validation translator
// TransKey 是 gin.Context 中保存校验翻译器的键
const TransKey = "trans"

type ValidError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// ErrorsToString joins "key: message" pairs for response details
// ErrorsToString 拼接 "key: message" 作为响应详情
func (v ValidErrors) ErrorsToString() string {
	parts := make([]string, 0, len(v))
	for _, err := range v {
		parts = append(parts, err.Key+": "+err.Message)
	}
	return strings.Join(parts, "; ")
}

func (v ValidErrors) MapsToString() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		out[err.Key] = err.Message
	}
	return out
}

// BindAndValid binds query/body into v and translates validation failures
// BindAndValid 绑定请求参数并翻译校验错误
func BindAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	var errs ValidErrors
	err := c.ShouldBind(v)
	if err == nil {
		return true, nil
	}
	return false, append(errs, translate(c, err)...)
}

// BindQueryAndValid binds only the query string
// BindQueryAndValid 仅绑定查询参数
func BindQueryAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	if err := c.ShouldBindQuery(v); err != nil {
		return false, translate(c, err)
	}
	return true, nil
}

// MaxBodyBytes caps the body read by BindBodyAndValid
// MaxBodyBytes BindBodyAndValid 读取请求体的上限
const MaxBodyBytes = 32 << 20

// FormDataField is the form field carrying a JSON document in form posts
// FormDataField 表单提交时携带 JSON 文档的字段名
const FormDataField = "data"

// BindBodyAndValid decodes a JSON document from the body whatever the content type:
// application/json, text/plain (sendBeacon) or a form post with the JSON in field "data".
// BindBodyAndValid 不论 Content-Type 都从请求体解析 JSON 文档：
// application/json、text/plain（sendBeacon）或在 "data" 字段中携带 JSON 的表单
func BindBodyAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	var errs ValidErrors

	raw, err := readJSONBody(c)
	if err != nil {
		return false, append(errs, &ValidError{Key: "body", Message: err.Error()})
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, append(errs, &ValidError{Key: "body", Message: "request body is required"})
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return false, append(errs, &ValidError{Key: "body", Message: "invalid JSON body"})
	}
	if binding.Validator == nil {
		return true, nil
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return false, translate(c, err)
	}
	return true, nil
}

func readJSONBody(c *gin.Context) ([]byte, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		return []byte(c.PostForm(FormDataField)), nil
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, MaxBodyBytes))
}

func translate(c *gin.Context, err error) ValidErrors {
	var errs ValidErrors
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return append(errs, &ValidError{Key: "body", Message: err.Error()})
	}
	trans, _ := c.Value(TransKey).(ut.Translator)
	for _, e := range verrs {
		msg := e.Error()
		if trans != nil {
			msg = e.Translate(trans)
		}
		errs = append(errs, &ValidError{Key: e.Field(), Message: msg})
	}
	return errs
}

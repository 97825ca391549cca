package historyclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/haierkeys/doc-history-service/pkg/code"
)

var (
	// ErrValidation 请求参数缺失或无效
	ErrValidation = errors.New("historyclient: validation failed")
	// ErrNotFound 版本或文档不存在
	ErrNotFound = errors.New("historyclient: not found")
	// ErrOwnershipMismatch 版本不属于指定房间
	ErrOwnershipMismatch = errors.New("historyclient: version does not belong to room")
	// ErrStoreUnavailable 服务端版本存储不可用
	ErrStoreUnavailable = errors.New("historyclient: store unavailable")
	// ErrConflict 服务端重试后仍然版本号冲突
	ErrConflict = errors.New("historyclient: version conflict")
	// ErrTransient 网络错误或限流，可稍后重试
	ErrTransient = errors.New("historyclient: transient failure")
	// ErrServer 其他服务端错误
	ErrServer = errors.New("historyclient: server error")
)

// APIError is a non-success envelope returned by the server
// APIError 服务端返回的失败响应
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
	Details    string

	kind error
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (code %d, http %d): %s", e.Message, e.Code, e.HTTPStatus, e.Details)
	}
	return fmt.Sprintf("%s (code %d, http %d)", e.Message, e.Code, e.HTTPStatus)
}

// Unwrap lets errors.Is match the sentinel for this error kind
// Unwrap 使 errors.Is 能匹配对应的哨兵错误
func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(httpStatus, c int, message, details string) *APIError {
	return &APIError{
		HTTPStatus: httpStatus,
		Code:       c,
		Message:    message,
		Details:    details,
		kind:       classify(httpStatus, c),
	}
}

func classify(httpStatus, c int) error {
	switch c {
	case code.ErrorVersionRoomMismatch.Code():
		return ErrOwnershipMismatch
	case code.ErrorVersionNotFound.Code(), code.ErrorDocumentNotFound.Code(), code.ErrorNotFoundAPI.Code():
		return ErrNotFound
	case code.ErrorInvalidParams.Code(), code.ErrorVersionContent.Code():
		return ErrValidation
	case code.ErrorStoreUnavailable.Code():
		return ErrStoreUnavailable
	case code.ErrorVersionConflict.Code():
		return ErrConflict
	case code.ErrorTooManyRequests.Code():
		return ErrTransient
	}

	switch {
	case httpStatus == http.StatusNotFound:
		return ErrNotFound
	case httpStatus == http.StatusServiceUnavailable:
		return ErrStoreUnavailable
	case httpStatus == http.StatusTooManyRequests, httpStatus == http.StatusBadGateway, httpStatus == http.StatusGatewayTimeout:
		return ErrTransient
	case httpStatus >= 400 && httpStatus < 500:
		return ErrValidation
	}
	return ErrServer
}

package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/pkg/code"
	"github.com/haierkeys/doc-history-service/pkg/writequeue"

	"gorm.io/gorm"
)

// storeError maps repository errors onto response codes.
// notFound is returned for gorm.ErrRecordNotFound.
// storeError 将仓储层错误映射为响应码，gorm.ErrRecordNotFound 映射为 notFound
func storeError(err error, notFound *code.Code) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, dao.ErrVersionConflict):
		return code.ErrorVersionConflict.WithDetails(err.Error())
	case dao.IsUnavailable(err),
		errors.Is(err, writequeue.ErrWriteTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return code.ErrorStoreUnavailable.WithDetails(err.Error())
	}
	return code.ErrorDBQuery.WithDetails(err.Error())
}

// countError records err in service_errors_total and returns it unchanged
// countError 将错误计入 service_errors_total 后原样返回
func countError(method string, err error) error {
	if err == nil {
		return nil
	}
	label := "unknown"
	var c *code.Code
	if errors.As(err, &c) {
		label = strconv.Itoa(c.Code())
	}
	serviceErrors.WithLabelValues(method, label).Inc()
	return err
}

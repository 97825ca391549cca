package dto

import (
	"fmt"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/timex"
	"github.com/jinzhu/copier"
)

var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: time.Time{},
			DstType: timex.Time{},
			Fn: func(src interface{}) (interface{}, error) {
				t, ok := src.(time.Time)
				if !ok {
					return nil, fmt.Errorf("dto: expected time.Time, got %T", src)
				}
				return timex.Time(t), nil
			},
		},
	},
}

// Copy copies matching fields from a domain value into a DTO,
// converting time.Time into timex.Time. Fields tagged copier:"-" are left alone.
// Copy 将领域对象的同名字段复制到 DTO，time.Time 转换为 timex.Time，copier:"-" 字段跳过
func Copy(dst, src interface{}) error {
	return copier.CopyWithOption(dst, src, copyOption)
}

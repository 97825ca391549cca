package api_router

import (
	"expvar"
	"fmt"
	"sync/atomic"

	"github.com/haierkeys/doc-history-service/internal/app"

	"github.com/gin-gonic/gin"
)

// PublishRuntimeVars exposes worker pool and write queue state under /debug/vars
// PublishRuntimeVars 将 worker pool 与写队列状态发布到 /debug/vars
// expvar names are process global, so a second App only replaces the source.
func PublishRuntimeVars(a *app.App) {
	runtimeSource.Store(a)
	publishOnce("workerPool", func() any {
		if cur := runtimeSource.Load(); cur != nil && cur.WorkerPool() != nil {
			return cur.WorkerPool().GetMetrics()
		}
		return nil
	})
	publishOnce("writeQueue", func() any {
		if cur := runtimeSource.Load(); cur != nil && cur.WriteQueueManager() != nil {
			return cur.WriteQueueManager().GetMetrics()
		}
		return nil
	})
	publishOnce("uptime", func() any {
		if cur := runtimeSource.Load(); cur != nil {
			return cur.Uptime().String()
		}
		return nil
	})
}

var runtimeSource atomic.Pointer[app.App]

func publishOnce(name string, fn func() any) {
	if expvar.Get(name) != nil {
		return
	}
	expvar.Publish(name, expvar.Func(fn))
}

// Expvar 导出系统运行时指标
// 函数名: Expvar
// 函数使用说明: 处理获取系统运行时指标 (expvar) 的 HTTP 请求。将 expvar 导出的 JSON 数据写入响应。
// 参数说明:
//   - c *gin.Context: Gin 上下文
//
// 返回值说明:
//   - JSON: 包含系统指标的 JSON 数据
func Expvar(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	first := true
	report := func(key string, value interface{}) {
		if !first {
			fmt.Fprintf(c.Writer, ",\n")
		}
		first = false
		if str, ok := value.(string); ok {
			fmt.Fprintf(c.Writer, "%q: %q", key, str)
		} else {
			fmt.Fprintf(c.Writer, "%q: %v", key, value)
		}
	}

	fmt.Fprintf(c.Writer, "{\n")
	expvar.Do(func(kv expvar.KeyValue) {
		report(kv.Key, kv.Value)
	})
	fmt.Fprintf(c.Writer, "\n}\n")
}

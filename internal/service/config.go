// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	App AppServiceConfig // App related config // 应用相关配置
}

// AppServiceConfig app service configuration
// AppServiceConfig 应用服务配置
type AppServiceConfig struct {
	OpListDefaultLimit int    // Ops returned when no limit is given, default 100 // 未指定数量时返回的操作日志条数，默认 100
	OpListMaxLimit     int    // Upper bound of the ops limit, default 500 // 操作日志查询上限，默认 500
	OpRetentionTime    string // Op log retention (e.g. 30d, 72h, 0/empty to keep forever) // 操作日志保留时间（如 30d、72h，0 或空表示永久保留）
}

func (c *AppServiceConfig) opLimit(requested int) int {
	def, max := c.OpListDefaultLimit, c.OpListMaxLimit
	if def <= 0 {
		def = 100
	}
	if max <= 0 {
		max = 500
	}
	switch {
	case requested <= 0:
		return def
	case requested > max:
		return max
	}
	return requested
}

package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldRoomID 房间 ID 字段
	FieldRoomID = "roomId"

	// FieldVersionID 版本记录 ID 字段
	FieldVersionID = "versionId"

	// FieldVersion 版本号字段
	FieldVersion = "version"

	// FieldAuthor 作者标识字段
	FieldAuthor = "author"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldSessionID 会话 ID 字段
	FieldSessionID = "sessionId"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldAttempt 重试次数字段
	FieldAttempt = "attempt"

	// FieldCount 数量字段
	FieldCount = "count"
)

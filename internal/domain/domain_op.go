package domain

import "time"

// OpLogEntry 操作审计日志
type OpLogEntry struct {
	ID        int64
	RoomID    string
	UserEmail string
	Op        string
	CreatedAt time.Time
}

// Package notify fans out room events ("versions changed") to interested subscribers
// Package notify 将房间事件（版本变更）分发给订阅者
package notify

import (
	"context"
	"time"
)

// EventType 事件类型
type EventType string

const (
	// EventVersionsChanged a version was saved or reverted in the room
	// EventVersionsChanged 房间内保存或回滚了版本
	EventVersionsChanged EventType = "VersionsChanged"
)

// AllRooms subscribes to every room
// AllRooms 订阅所有房间
const AllRooms = ""

// Event 房间事件
type Event struct {
	Type        EventType `json:"type"`
	RoomID      string    `json:"roomId"`
	Version     int64     `json:"version,omitempty"`
	AuthorEmail string    `json:"authorEmail,omitempty"`
	At          time.Time `json:"at"`
}

// Hub publishes room events and hands out subscriptions
// Hub 发布房间事件并提供订阅
type Hub interface {
	// Publish 发布事件，不等待订阅者处理
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for roomID (AllRooms for every room) and a cancel func
	// Subscribe 返回 roomID（AllRooms 表示全部房间）的事件通道与取消函数
	Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error)
	// Close 关闭 Hub，关闭后所有订阅通道都会被关闭
	Close() error
}

// subscriberBuffer is the channel size handed to each subscriber
// subscriberBuffer 每个订阅者的通道缓冲大小
const subscriberBuffer = 32

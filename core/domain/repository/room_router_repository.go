package repository

import (
	"context"
	"time"
)

// RoomRouterRepository 用户到房间的路由，断线重连时找回房间
// 只是提示信息，房间是否存在以内存中的 RoomManager 为准
type RoomRouterRepository interface {
	// SaveRouter ttl 过期后自动清理
	SaveRouter(ctx context.Context, userID, roomID string, ttl time.Duration) error

	// GetRouter 不存在时返回 ErrRouterNotFound
	GetRouter(ctx context.Context, userID string) (string, error)

	DeleteRouter(ctx context.Context, userID string) error
}

package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/Arterning/national-chess/common/database"
	"github.com/Arterning/national-chess/core/domain/repository"
	"github.com/redis/go-redis/v9"
)

const roomRouterKey = "room:router" // userID -> roomID

// RedisRoomRouterRepository Redis 实现的房间路由仓储
type RedisRoomRouterRepository struct {
	redis *database.RedisManager
}

func NewRedisRoomRouterRepository(redis *database.RedisManager) repository.RoomRouterRepository {
	return &RedisRoomRouterRepository{redis: redis}
}

func routerKey(userID string) string {
	return roomRouterKey + ":" + userID
}

func (r *RedisRoomRouterRepository) SaveRouter(ctx context.Context, userID, roomID string, ttl time.Duration) error {
	return r.redis.Set(ctx, routerKey(userID), roomID, ttl)
}

func (r *RedisRoomRouterRepository) GetRouter(ctx context.Context, userID string) (string, error) {
	roomID, err := r.redis.Get(ctx, routerKey(userID))
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrRouterNotFound
	}
	return roomID, err
}

func (r *RedisRoomRouterRepository) DeleteRouter(ctx context.Context, userID string) error {
	return r.redis.Del(ctx, routerKey(userID))
}

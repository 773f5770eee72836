package cache

import (
	"fmt"
	"time"

	"github.com/Arterning/national-chess/common/cache"
)

// RoomRouteCache 本地缓存 userID -> roomID，挡在 redis 前面
type RoomRouteCache struct {
	cache    *cache.TTLCache[string]
	routeKey string
	ttl      time.Duration
}

func NewRoomRouteCache(ttl time.Duration) (*RoomRouteCache, error) {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	routes, err := cache.NewTTLCache[string](1<<20, ttl) // 最多约 100 万个路由
	if err != nil {
		return nil, fmt.Errorf("创建房间路由缓存失败: %w", err)
	}
	return &RoomRouteCache{cache: routes, routeKey: "room:route", ttl: ttl}, nil
}

func (c *RoomRouteCache) key(userID string) string {
	return fmt.Sprintf("%s:%s", c.routeKey, userID)
}

func (c *RoomRouteCache) Set(userID, roomID string) bool {
	if userID == "" || roomID == "" {
		return false
	}
	return c.cache.SetWithTTL(c.key(userID), roomID, c.ttl)
}

func (c *RoomRouteCache) Get(userID string) (string, bool) {
	return c.cache.Get(c.key(userID))
}

func (c *RoomRouteCache) Delete(userID string) {
	c.cache.Delete(c.key(userID))
}

// Wait 等待异步写入生效
func (c *RoomRouteCache) Wait() {
	c.cache.Wait()
}

func (c *RoomRouteCache) Close() {
	c.cache.Close()
}

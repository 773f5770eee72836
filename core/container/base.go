package container

import (
	"errors"

	"github.com/Arterning/national-chess/common/config"
	"github.com/Arterning/national-chess/common/database"
	"github.com/Arterning/national-chess/common/log"
)

// BaseContainer 管理数据库连接，mongo、redis 未配置时为 nil
type BaseContainer struct {
	mongo *database.MongoManager
	redis *database.RedisManager
}

func NewBase(conf config.DatabaseConf) (*BaseContainer, error) {
	mongo, err := database.NewMongo(conf.MongoConf)
	if err != nil {
		return nil, err
	}
	redis, err := database.NewRedis(conf.RedisConf)
	if err != nil {
		if mongo != nil {
			_ = mongo.Close()
		}
		return nil, err
	}
	if mongo == nil {
		log.Warn("未配置 mongodb，对局存档关闭")
	}
	if redis == nil {
		log.Warn("未配置 redis，重连路由只保存在本机缓存")
	}
	return &BaseContainer{mongo: mongo, redis: redis}, nil
}

func (c *BaseContainer) GetMongo() *database.MongoManager {
	return c.mongo
}

func (c *BaseContainer) GetRedis() *database.RedisManager {
	return c.redis
}

// Close 关闭已打开的连接
func (c *BaseContainer) Close() error {
	var errs []error
	if c.mongo != nil {
		if err := c.mongo.Close(); err != nil {
			log.Error("mongo 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Error("redis 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

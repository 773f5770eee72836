package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Arterning/national-chess/common/config"
	"github.com/Arterning/national-chess/common/log"
	"github.com/redis/go-redis/v9"
)

type RedisManager struct {
	Cli        *redis.Client
	ClusterCli *redis.ClusterClient
}

// NewRedis 连接 redis，未配置地址时返回 nil, nil
func NewRedis(redisConf config.RedisConf) (*RedisManager, error) {
	if !redisConf.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := redisConf.Addr
	if addr == "" && redisConf.Host != "" {
		addr = fmt.Sprintf("%s:%d", redisConf.Host, redisConf.Port)
	}

	r := &RedisManager{}
	if len(redisConf.ClusterAddrs) == 0 {
		r.Cli = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     redisConf.Password,
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
		if err := r.Cli.Ping(ctx).Err(); err != nil {
			_ = r.Cli.Close()
			return nil, fmt.Errorf("redis 连接错误: %w", err)
		}
	} else {
		r.ClusterCli = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        redisConf.ClusterAddrs,
			Password:     redisConf.Password,
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
		if err := r.ClusterCli.Ping(ctx).Err(); err != nil {
			_ = r.ClusterCli.Close()
			return nil, fmt.Errorf("redisCluster 连接错误: %w", err)
		}
	}
	return r, nil
}

func (r *RedisManager) GetClient() (redis.Cmdable, error) {
	if r.Cli != nil {
		return r.Cli, nil
	}
	if r.ClusterCli != nil {
		return r.ClusterCli, nil
	}
	return nil, fmt.Errorf("redis 客户端未初始化")
}

func (r *RedisManager) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	cli, err := r.GetClient()
	if err != nil {
		return err
	}
	return cli.Set(ctx, key, value, expiration).Err()
}

func (r *RedisManager) Get(ctx context.Context, key string) (string, error) {
	cli, err := r.GetClient()
	if err != nil {
		return "", err
	}
	return cli.Get(ctx, key).Result()
}

func (r *RedisManager) Del(ctx context.Context, keys ...string) error {
	cli, err := r.GetClient()
	if err != nil {
		return err
	}
	return cli.Del(ctx, keys...).Err()
}

func (r *RedisManager) Close() error {
	if r == nil {
		return nil
	}
	if r.Cli != nil {
		if err := r.Cli.Close(); err != nil {
			log.Error("redis 关闭出错: %v", err)
			return err
		}
	}
	if r.ClusterCli != nil {
		if err := r.ClusterCli.Close(); err != nil {
			log.Error("redisCluster 关闭出错: %v", err)
			return err
		}
	}
	return nil
}

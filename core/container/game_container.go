package container

import (
	"fmt"
	"sync"

	"github.com/Arterning/national-chess/common/config"
	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/core/infrastructure/cache"
	"github.com/Arterning/national-chess/core/infrastructure/message/node"
	"github.com/Arterning/national-chess/core/infrastructure/persistence"
	"github.com/Arterning/national-chess/core/infrastructure/realtime"
	"github.com/Arterning/national-chess/runtime/conn"
	"github.com/Arterning/national-chess/runtime/game"
	"github.com/Arterning/national-chess/runtime/game/application/service/impl"
	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

// GameContainer game 服务容器
// 在 BaseContainer 的数据库连接之上组装房间、旁路和 websocket 网关
type GameContainer struct {
	*BaseContainer
	GameWorker *game.Worker
	WsWorker   *conn.Worker

	routeCache *cache.RoomRouteCache
	natsWorker *node.NatsWorker

	closed bool
	mu     sync.Mutex
}

// LayoutPolicyOf 配置里的布阵约束
func LayoutPolicyOf(rules config.RulesConf) junqi.LayoutPolicy {
	return junqi.LayoutPolicy{
		RequireFlagInHeadquarters:  rules.RequireFlagInHeadquarters,
		RequireLandminesInBackRows: rules.RequireLandminesInBackRows,
		ForbidCampPlacement:        rules.ForbidCampPlacement,
	}
}

func NewGameContainer(cfg config.GameConfiguration) (*GameContainer, error) {
	base, err := NewBase(cfg.DatabaseConf)
	if err != nil {
		return nil, fmt.Errorf("基础容器初始化失败: %w", err)
	}
	c := &GameContainer{BaseContainer: base}

	c.GameWorker = game.NewWorker(cfg.ID, cfg.RoomConf.MonitorInterval,
		game.WithLayoutPolicy(LayoutPolicyOf(cfg.RulesConf)),
		game.WithInactivityTimeout(cfg.RoomConf.InactivityTimeout),
		game.WithSweepInterval(cfg.RoomConf.SweepInterval),
	)

	opts := []impl.Option{impl.WithRouteTTL(cfg.RoomConf.InactivityTimeout)}
	if base.mongo != nil {
		opts = append(opts, impl.WithMatchRepository(persistence.NewMatchRecordRepository(base.mongo)))
	}
	if base.redis != nil {
		opts = append(opts, impl.WithRouterRepository(realtime.NewRedisRoomRouterRepository(base.redis)))
	}
	routeCache, err := cache.NewRoomRouteCache(cfg.RoomConf.InactivityTimeout)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("路由缓存初始化失败: %w", err)
	}
	c.routeCache = routeCache
	opts = append(opts, impl.WithRouteCache(routeCache))

	if cfg.NatsConfig.URL != "" {
		nw := node.NewNatsWorker(cfg.NatsConfig.Subject, cfg.ID)
		if err := nw.Run(cfg.NatsConfig.URL); err != nil {
			c.Close()
			return nil, fmt.Errorf("nats 连接失败: %w", err)
		}
		c.natsWorker = nw
		opts = append(opts, impl.WithPublisher(nw))
	}
	c.GameWorker.SetGameService(impl.NewGameService(opts...))

	ws, err := conn.NewWorker(cfg.ID, c.GameWorker,
		conn.WithJwtSecret(cfg.JwtConf.Secret),
		conn.WithTestPath(cfg.JwtConf.AllowTestPath),
		conn.WithMaxConnections(cfg.RoomConf.MaxConnections),
		conn.WithConnectRate(cfg.RoomConf.ConnectRate, cfg.RoomConf.ConnectBurst),
		conn.WithRedactHidden(cfg.RulesConf.RedactHidden),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.WsWorker = ws

	log.Info("GameContainer 初始化完成，节点 %s", cfg.ID)
	return c, nil
}

// Close 可以多次调用，先断开连接再停房间，最后关闭外部依赖
func (c *GameContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.WsWorker != nil {
		c.WsWorker.Close()
	}
	if c.GameWorker != nil {
		c.GameWorker.Close()
	}
	if c.natsWorker != nil {
		c.natsWorker.Close()
	}
	if c.routeCache != nil {
		c.routeCache.Close()
	}
	var err error
	if c.BaseContainer != nil {
		err = c.BaseContainer.Close()
	}
	if err != nil {
		return fmt.Errorf("关闭资源失败: %w", err)
	}
	log.Info("GameContainer 已关闭")
	return nil
}

package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/core/domain/entity"
	"github.com/Arterning/national-chess/core/domain/repository"
	"github.com/Arterning/national-chess/core/infrastructure/cache"
	"github.com/Arterning/national-chess/core/infrastructure/message/transfer"
	"github.com/Arterning/national-chess/runtime/game/application/service"
)

// EventPublisher 房间事件发布，由 NatsWorker 实现
type EventPublisher interface {
	Publish(packet *transfer.RoomEventPacket) error
}

// GameServiceImpl 所有依赖都可以为 nil，对应的旁路直接跳过
type GameServiceImpl struct {
	matchRepo  repository.MatchRecordRepository
	routerRepo repository.RoomRouterRepository
	routeCache *cache.RoomRouteCache
	publisher  EventPublisher
	routeTTL   time.Duration
}

type Option func(*GameServiceImpl)

func WithMatchRepository(repo repository.MatchRecordRepository) Option {
	return func(s *GameServiceImpl) { s.matchRepo = repo }
}

func WithRouterRepository(repo repository.RoomRouterRepository) Option {
	return func(s *GameServiceImpl) { s.routerRepo = repo }
}

func WithRouteCache(c *cache.RoomRouteCache) Option {
	return func(s *GameServiceImpl) { s.routeCache = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *GameServiceImpl) { s.publisher = p }
}

// WithRouteTTL 路由过期时间，一般与不活跃超时一致
func WithRouteTTL(ttl time.Duration) Option {
	return func(s *GameServiceImpl) { s.routeTTL = ttl }
}

// NewGameService 创建 GameService 实例
func NewGameService(opts ...Option) service.GameService {
	s := &GameServiceImpl{routeTTL: 2 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordMatch 保存对局存档
func (s *GameServiceImpl) RecordMatch(ctx context.Context, req *service.RecordMatchReq) error {
	if req == nil || req.RoomID == "" {
		return fmt.Errorf("存档请求不能为空")
	}
	if s.matchRepo == nil {
		return nil
	}

	players := make([]entity.PlayerInfo, 0, len(req.Players))
	for _, p := range req.Players {
		players = append(players, entity.PlayerInfo{
			UserID:    p.UserID,
			SeatIndex: p.Seat,
			Team:      p.Team,
			Nickname:  p.DisplayName,
			Survived:  p.Alive,
		})
	}
	record := entity.NewMatchRecord(req.RoomID, req.Variant, players, req.StartedAt)
	if req.Finished {
		record.Complete(req.WinnerTeam, req.WinnerSeats, req.MoveCount, req.EndedAt)
	} else {
		record.Abort(req.MoveCount, req.EndedAt)
	}

	if err := s.matchRepo.SaveMatchRecord(ctx, record); err != nil {
		return fmt.Errorf("保存房间 %s 对局存档失败: %w", req.RoomID, err)
	}
	log.Info("GameService 保存对局存档: room=%s, status=%s, moves=%d", req.RoomID, record.Status, record.MoveCount)
	return nil
}

// PublishRoomEvent 发布房间事件
func (s *GameServiceImpl) PublishRoomEvent(ctx context.Context, req *service.RoomEventReq) error {
	if req == nil || req.RoomID == "" {
		return fmt.Errorf("事件请求不能为空")
	}
	if s.publisher == nil {
		return nil
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	return s.publisher.Publish(&transfer.RoomEventPacket{
		RoomID:      req.RoomID,
		Event:       req.Event,
		Variant:     req.Variant,
		Status:      req.Status,
		Players:     req.Players,
		UserID:      req.UserID,
		WinnerTeam:  req.WinnerTeam,
		WinnerSeats: req.WinnerSeats,
		Timestamp:   at.UnixMilli(),
	})
}

// SaveRoute 先写本地缓存再写 redis
func (s *GameServiceImpl) SaveRoute(ctx context.Context, userID, roomID string) error {
	if s.routeCache != nil {
		s.routeCache.Set(userID, roomID)
	}
	if s.routerRepo == nil {
		return nil
	}
	if err := s.routerRepo.SaveRouter(ctx, userID, roomID, s.routeTTL); err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrRedis, err)
	}
	return nil
}

// LookupRoute 本地缓存未命中时查 redis 并回填
func (s *GameServiceImpl) LookupRoute(ctx context.Context, userID string) (string, error) {
	if s.routeCache != nil {
		if roomID, ok := s.routeCache.Get(userID); ok {
			return roomID, nil
		}
	}
	if s.routerRepo == nil {
		return "", service.ErrRouteNotFound
	}
	roomID, err := s.routerRepo.GetRouter(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRouterNotFound) {
			return "", service.ErrRouteNotFound
		}
		return "", fmt.Errorf("%w: %v", transfer.ErrRedis, err)
	}
	if s.routeCache != nil {
		s.routeCache.Set(userID, roomID)
	}
	return roomID, nil
}

func (s *GameServiceImpl) RemoveRoute(ctx context.Context, userID string) error {
	if s.routeCache != nil {
		s.routeCache.Delete(userID)
	}
	if s.routerRepo == nil {
		return nil
	}
	if err := s.routerRepo.DeleteRouter(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrRedis, err)
	}
	return nil
}

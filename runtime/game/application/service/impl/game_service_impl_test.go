package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Arterning/national-chess/core/domain/entity"
	"github.com/Arterning/national-chess/core/domain/repository"
	"github.com/Arterning/national-chess/core/infrastructure/cache"
	"github.com/Arterning/national-chess/core/infrastructure/message/transfer"
	"github.com/Arterning/national-chess/runtime/game/application/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memMatchRepo struct {
	mu      sync.Mutex
	records []*entity.MatchRecord
}

func (m *memMatchRepo) SaveMatchRecord(_ context.Context, record *entity.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memMatchRepo) FindMatchRecord(_ context.Context, id primitive.ObjectID) (*entity.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrMatchRecordNotFound
}

func (m *memMatchRepo) FindMatchRecordsByUser(context.Context, string, int, int) ([]*entity.MatchRecord, error) {
	return nil, nil
}

type memRouterRepo struct {
	mu     sync.Mutex
	routes map[string]string
	ttls   map[string]time.Duration
	gets   int
	err    error
}

func newMemRouterRepo() *memRouterRepo {
	return &memRouterRepo{routes: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memRouterRepo) SaveRouter(_ context.Context, userID, roomID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.routes[userID] = roomID
	m.ttls[userID] = ttl
	return nil
}

func (m *memRouterRepo) GetRouter(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return "", m.err
	}
	roomID, ok := m.routes[userID]
	if !ok {
		return "", repository.ErrRouterNotFound
	}
	return roomID, nil
}

func (m *memRouterRepo) DeleteRouter(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, userID)
	return m.err
}

type capturePublisher struct {
	packets []*transfer.RoomEventPacket
}

func (p *capturePublisher) Publish(packet *transfer.RoomEventPacket) error {
	p.packets = append(p.packets, packet)
	return nil
}

func TestRecordMatch(t *testing.T) {
	repo := &memMatchRepo{}
	svc := NewGameService(WithMatchRepository(repo))
	start := time.Now().Add(-time.Minute)

	err := svc.RecordMatch(context.Background(), &service.RecordMatchReq{
		RoomID:  "room_1",
		Variant: "TWO_PLAYER",
		Players: []service.MatchPlayer{
			{UserID: "u0", Seat: 0, Team: 0, Alive: true},
			{UserID: "u1", Seat: 1, Team: 1},
		},
		Finished:    true,
		WinnerTeam:  0,
		WinnerSeats: []int{0},
		MoveCount:   9,
		StartedAt:   start,
		EndedAt:     start.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, repo.records, 1)

	rec := repo.records[0]
	assert.Equal(t, entity.MatchStatusCompleted, rec.Status)
	assert.Equal(t, 60, rec.Duration)
	assert.Equal(t, []int{0}, rec.WinnerSeats)
	assert.True(t, rec.Players[0].Survived)
	assert.Equal(t, 1, rec.Players[1].Team)

	require.NoError(t, svc.RecordMatch(context.Background(), &service.RecordMatchReq{RoomID: "room_2", EndedAt: time.Now()}))
	assert.Equal(t, entity.MatchStatusAborted, repo.records[1].Status)
	assert.Equal(t, -1, repo.records[1].WinnerTeam)

	assert.Error(t, svc.RecordMatch(context.Background(), nil))
}

func TestSideChannelsDisabled(t *testing.T) {
	svc := NewGameService()
	ctx := context.Background()

	assert.NoError(t, svc.RecordMatch(ctx, &service.RecordMatchReq{RoomID: "r"}))
	assert.NoError(t, svc.PublishRoomEvent(ctx, &service.RoomEventReq{RoomID: "r", Event: "created"}))
	assert.NoError(t, svc.SaveRoute(ctx, "u1", "r"))
	assert.NoError(t, svc.RemoveRoute(ctx, "u1"))

	_, err := svc.LookupRoute(ctx, "u1")
	assert.ErrorIs(t, err, service.ErrRouteNotFound)
}

func TestRoutesUseCacheBeforeRedis(t *testing.T) {
	routeCache, err := cache.NewRoomRouteCache(time.Hour)
	require.NoError(t, err)
	defer routeCache.Close()
	repo := newMemRouterRepo()
	svc := NewGameService(WithRouterRepository(repo), WithRouteCache(routeCache), WithRouteTTL(30*time.Minute))
	ctx := context.Background()

	require.NoError(t, svc.SaveRoute(ctx, "u1", "room_1"))
	assert.Equal(t, 30*time.Minute, repo.ttls["u1"])
	routeCache.Wait()

	roomID, err := svc.LookupRoute(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "room_1", roomID)
	assert.Equal(t, 0, repo.gets, "缓存命中时不应查 redis")

	// 只有 redis 里有
	repo.routes["u2"] = "room_2"
	roomID, err = svc.LookupRoute(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "room_2", roomID)
	assert.Equal(t, 1, repo.gets)

	require.NoError(t, svc.RemoveRoute(ctx, "u1"))
	routeCache.Wait()
	_, err = svc.LookupRoute(ctx, "u1")
	assert.ErrorIs(t, err, service.ErrRouteNotFound)
}

func TestRouteRedisError(t *testing.T) {
	repo := newMemRouterRepo()
	repo.err = errors.New("connection refused")
	svc := NewGameService(WithRouterRepository(repo))

	err := svc.SaveRoute(context.Background(), "u1", "room_1")
	assert.ErrorIs(t, err, transfer.ErrRedis)

	_, err = svc.LookupRoute(context.Background(), "u1")
	assert.ErrorIs(t, err, transfer.ErrRedis)
}

func TestPublishRoomEvent(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewGameService(WithPublisher(pub))
	team := 0
	at := time.UnixMilli(1700000000000)

	require.NoError(t, svc.PublishRoomEvent(context.Background(), &service.RoomEventReq{
		RoomID:     "room_1",
		Event:      "finished",
		Variant:    "FOUR_PLAYER",
		Status:     "FINISHED",
		Players:    []string{"u0", "u1"},
		WinnerTeam: &team,
		At:         at,
	}))
	require.Len(t, pub.packets, 1)
	p := pub.packets[0]
	assert.Equal(t, "room_1", p.RoomID)
	assert.Equal(t, "finished", p.Event)
	assert.Equal(t, int64(1700000000000), p.Timestamp)
	assert.Equal(t, 0, *p.WinnerTeam)
}

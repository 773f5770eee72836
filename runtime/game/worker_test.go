package game

import (
	"context"
	"sync"
	"testing"
	"time"

	svc "github.com/Arterning/national-chess/runtime/game/application/service"
	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGameService struct {
	mu      sync.Mutex
	matches []*svc.RecordMatchReq
	events  []*svc.RoomEventReq
	routes  map[string]string
	removed []string
}

func newFakeGameService() *fakeGameService {
	return &fakeGameService{routes: make(map[string]string)}
}

func (f *fakeGameService) RecordMatch(_ context.Context, req *svc.RecordMatchReq) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, req)
	return nil
}

func (f *fakeGameService) PublishRoomEvent(_ context.Context, req *svc.RoomEventReq) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, req)
	return nil
}

func (f *fakeGameService) SaveRoute(_ context.Context, userID, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[userID] = roomID
	return nil
}

func (f *fakeGameService) LookupRoute(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roomID, ok := f.routes[userID]
	if !ok {
		return "", svc.ErrRouteNotFound
	}
	return roomID, nil
}

func (f *fakeGameService) RemoveRoute(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.routes, userID)
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeGameService) matchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matches)
}

func (f *fakeGameService) hasEvent(event, roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.Event == event && ev.RoomID == roomID {
			return true
		}
	}
	return false
}

func (f *fakeGameService) wasRemoved(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.removed {
		if u == userID {
			return true
		}
	}
	return false
}

func newTestWorker(t *testing.T, opts ...Option) (*Worker, *fakeGameService) {
	t.Helper()
	w := NewWorker("game-test", time.Hour, opts...)
	gs := newFakeGameService()
	w.SetGameService(gs)
	t.Cleanup(w.Close)
	return w, gs
}

func TestWorker_PublishesRoomEvents(t *testing.T) {
	w, gs := newTestWorker(t)
	res, err := w.RoomManager.CreateRoom("r1", "", "host", "", "c", RoomOptions{Kind: junqi.TwoPlayer})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return gs.hasEvent("created", res.Room.ID) }, time.Second, 5*time.Millisecond)

	_, err = w.RoomManager.LeaveRoom("r1", "host")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return gs.hasEvent("deleted", "r1") }, time.Second, 5*time.Millisecond)
}

func TestWorker_RecordsFinishedMatch(t *testing.T) {
	w, gs := newTestWorker(t)
	roomID := startGame(t, w.RoomManager, junqi.FourPlayer)
	installNearEndGame(t, w.RoomManager, roomID)

	_, err := w.RoomManager.ApplyMove(roomID, "u0", "cmd", junqi.Position{Row: 7, Col: 16})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return gs.matchCount() == 1 }, time.Second, 5*time.Millisecond)
	gs.mu.Lock()
	req := gs.matches[0]
	gs.mu.Unlock()
	assert.Equal(t, roomID, req.RoomID)
	assert.True(t, req.Finished)
	assert.Equal(t, 0, req.WinnerTeam)
	assert.Equal(t, []int{0, 2}, req.WinnerSeats)
	assert.Equal(t, 1, req.MoveCount)
	assert.Len(t, req.Players, 4)
	assert.False(t, req.EndedAt.Before(req.StartedAt))

	assert.Eventually(t, func() bool { return gs.hasEvent("finished", roomID) }, time.Second, 5*time.Millisecond)
}

func TestWorker_ReapsAbandonedGameAndArchives(t *testing.T) {
	clock := newFakeClock()
	w, gs := newTestWorker(t, WithClock(clock.Now), WithInactivityTimeout(time.Minute))
	roomID := startGame(t, w.RoomManager, junqi.TwoPlayer)

	_, err := w.RoomManager.Disconnect(roomID, "u0", "c0")
	require.NoError(t, err)
	_, err = w.RoomManager.Disconnect(roomID, "u1", "c1")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	report := w.RoomManager.Sweeper().Sweep(clock.Now())
	assert.Equal(t, []string{roomID}, report.Reaped)

	require.Eventually(t, func() bool {
		_, ok := w.RoomManager.GetRoom(roomID)
		return !ok
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return gs.matchCount() == 1 }, time.Second, 5*time.Millisecond)

	gs.mu.Lock()
	req := gs.matches[0]
	gs.mu.Unlock()
	assert.False(t, req.Finished)
	assert.Equal(t, clock.Now(), req.EndedAt)
}

func TestWorker_EvictionForgetsRoute(t *testing.T) {
	clock := newFakeClock()
	w, gs := newTestWorker(t, WithClock(clock.Now), WithInactivityTimeout(time.Minute))
	roomID := fillRoom(t, w.RoomManager, junqi.TwoPlayer)
	w.RememberRoute("u1", roomID)

	clock.Advance(2 * time.Minute)
	w.RoomManager.Sweeper().Sweep(clock.Now())

	assert.Eventually(t, func() bool { return gs.wasRemoved("u1") }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return gs.hasEvent("evicted", roomID) }, time.Second, 5*time.Millisecond)
}

func TestWorker_ResolveRoom(t *testing.T) {
	w, gs := newTestWorker(t)
	ctx := context.Background()

	_, ok := w.ResolveRoom(ctx, "nobody")
	assert.False(t, ok)

	res, err := w.RoomManager.CreateRoom("r1", "", "host", "", "c", RoomOptions{})
	require.NoError(t, err)
	roomID, ok := w.ResolveRoom(ctx, "host")
	assert.True(t, ok)
	assert.Equal(t, res.Room.ID, roomID)

	// 内存中没有记录时查路由
	require.NoError(t, gs.SaveRoute(ctx, "wanderer", "r1"))
	roomID, ok = w.ResolveRoom(ctx, "wanderer")
	assert.True(t, ok)
	assert.Equal(t, "r1", roomID)

	// 路由指向的房间已经不存在
	require.NoError(t, gs.SaveRoute(ctx, "lost", "gone"))
	_, ok = w.ResolveRoom(ctx, "lost")
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return gs.wasRemoved("lost") }, time.Second, 5*time.Millisecond)
}

func TestWorker_WithoutGameService(t *testing.T) {
	w := NewWorker("bare", time.Hour)
	_, err := w.RoomManager.CreateRoom("r", "", "host", "", "c", RoomOptions{})
	require.NoError(t, err)
	w.RememberRoute("host", "r")
	w.RequestDestroyRoom("r")

	assert.Eventually(t, func() bool {
		_, ok := w.RoomManager.GetRoom("r")
		return !ok
	}, time.Second, 5*time.Millisecond)

	w.Close()
	w.Close()
	w.RequestDestroyRoom("r")
}

func TestWorker_StartAndMonitor(t *testing.T) {
	w, _ := newTestWorker(t)
	_, err := w.RoomManager.CreateRoom("r", "", "host", "", "c", RoomOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.Eventually(t, func() bool { return !w.Monitor.Latest().SampledAt.IsZero() }, 2*time.Second, 10*time.Millisecond)
	load := w.Monitor.Latest()
	assert.Equal(t, 1, load.GameCount)
	assert.Equal(t, 1, load.PlayerCount)
	assert.Positive(t, load.Goroutines)
	assert.GreaterOrEqual(t, load.CPUUsage, 0.0)
	assert.LessOrEqual(t, load.MemUsage, 100.0)
}

func TestLoadInfo_CalculateLoad(t *testing.T) {
	idle := LoadInfo{}
	assert.Zero(t, idle.CalculateLoad())

	busy := LoadInfo{GameCount: 500, PlayerCount: 1000, CPUUsage: 100, MemUsage: 100}
	assert.InDelta(t, 100.0, busy.CalculateLoad(), 1e-9)

	half := LoadInfo{GameCount: 50, PlayerCount: 50}
	assert.InDelta(t, 25.0, half.CalculateLoad(), 1e-9)
}

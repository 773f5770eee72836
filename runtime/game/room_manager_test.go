package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []RoomEvent
}

func (r *eventRecorder) listen(ev RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []RoomEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomEventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *eventRecorder) last(t RoomEventType) (RoomEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return RoomEvent{}, false
}

// fillRoom 创建房间并让 u1..u(n-1) 加入
func fillRoom(t *testing.T, rm *RoomManager, kind junqi.Variant) string {
	t.Helper()
	res, err := rm.CreateRoom("", "", "u0", "玩家0", "c0", RoomOptions{Kind: kind})
	require.NoError(t, err)
	for i := 1; i < kind.Capacity(); i++ {
		_, err := rm.JoinRoom(res.Room.ID, fmt.Sprintf("u%d", i), fmt.Sprintf("玩家%d", i), fmt.Sprintf("c%d", i), "", false)
		require.NoError(t, err)
	}
	return res.Room.ID
}

// startGame 所有玩家按加入顺序准备，u<i> 坐在座位 i
func startGame(t *testing.T, rm *RoomManager, kind junqi.Variant) string {
	t.Helper()
	roomID := fillRoom(t, rm, kind)
	g := junqi.GeometryFor(kind)
	for i := 0; i < kind.Capacity(); i++ {
		res, err := rm.MarkReady(roomID, fmt.Sprintf("u%d", i), g.StandardLayout(i))
		require.NoError(t, err)
		require.Equal(t, i, res.Seat)
		require.Equal(t, i == kind.Capacity()-1, res.Started)
	}
	return roomID
}

// installNearEndGame 换成一局座位 0 的司令下一步就能扛走座位 1 军旗的残局，座位 3 已被淘汰
func installNearEndGame(t *testing.T, rm *RoomManager, roomID string) {
	t.Helper()
	g := junqi.GeometryFor(junqi.FourPlayer)
	players := make([]*junqi.Player, g.Seats)
	for seat := range players {
		flag := g.Global(seat, 0, 1)
		guard := g.Global(seat, 0, 0)
		players[seat] = &junqi.Player{
			UserID: fmt.Sprintf("u%d", seat),
			Seat:   seat,
			Ready:  true,
			Pieces: []*junqi.Piece{
				{ID: fmt.Sprintf("flag%d", seat), Kind: junqi.Flag, Owner: seat, Position: flag, Alive: true},
				{ID: fmt.Sprintf("guard%d", seat), Kind: junqi.Platoon, Owner: seat, Position: guard, Alive: true},
			},
		}
	}
	players[0].Pieces = append(players[0].Pieces,
		&junqi.Piece{ID: "cmd", Kind: junqi.Commander, Owner: 0, Position: junqi.Position{Row: 7, Col: 15}, Alive: true})
	gs, err := junqi.NewGameState(roomID, junqi.FourPlayer, players, time.Now())
	require.NoError(t, err)
	gs.PlayerAt(3).Alive = false

	err = rm.withRoom("test", roomID, func(r *Room) error {
		r.Game = gs
		r.Status = RoomStatusPlaying
		return nil
	})
	require.NoError(t, err)
}

func TestRoomManager_CreateRoomDefaults(t *testing.T) {
	rm := NewRoomManager()
	res, err := rm.CreateRoom("", "", "host", "房主", "c-host", RoomOptions{})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, junqi.FourPlayer, res.Room.Kind)
	assert.Equal(t, 4, res.Room.MaxPlayers)
	assert.Equal(t, "四国军棋房间", res.Room.Name)
	assert.Equal(t, "host", res.Room.Host)
	assert.Equal(t, RoomStatusWaiting, res.Room.Status)
	require.NotNil(t, res.Player)
	assert.Equal(t, -1, res.Player.Seat)
	assert.Len(t, res.Audience, 1)

	roomID, ok := rm.GetPlayerRoom("host")
	assert.True(t, ok)
	assert.Equal(t, res.Room.ID, roomID)

	_, err = rm.CreateRoom(res.Room.ID, "", "other", "", "c-other", RoomOptions{})
	assert.True(t, IsValidation(err))

	_, err = rm.CreateRoom("", "", "x", "", "c-x", RoomOptions{Kind: "SIX_PLAYER"})
	assert.True(t, IsValidation(err))

	_, err = rm.CreateRoom("", "", "", "", "c", RoomOptions{})
	assert.True(t, IsValidation(err))
}

func TestRoomManager_FourPlayerGameStarts(t *testing.T) {
	rec := &eventRecorder{}
	rm := NewRoomManager(WithListener(rec.listen))
	roomID := startGame(t, rm, junqi.FourPlayer)

	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	assert.Equal(t, RoomStatusPlaying, view.Status)
	require.NotNil(t, view.Game)
	assert.Equal(t, 100, view.Game.PieceCount())
	assert.Equal(t, 0, view.Game.CurrentTurn)
	assert.NoError(t, view.Game.CheckConsistency())
	for seat, p := range view.Game.Players {
		assert.Equal(t, seat, p.Seat)
		assert.Equal(t, fmt.Sprintf("u%d", seat), p.UserID)
		assert.Len(t, p.Pieces, 25)
	}

	assert.Equal(t, []RoomEventType{EventRoomCreated, EventGameStarted}, rec.types())
	ev, ok := rec.last(EventGameStarted)
	require.True(t, ok)
	assert.Equal(t, RoomStatusPlaying, ev.Room.Status)

	_, err = rm.MarkReady(roomID, "u0", junqi.GeometryFor(junqi.FourPlayer).StandardLayout(0))
	assert.True(t, IsValidation(err))
}

func TestRoomManager_TwoPlayerGameStarts(t *testing.T) {
	rm := NewRoomManager()
	roomID := startGame(t, rm, junqi.TwoPlayer)

	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.MaxPlayers)
	assert.Equal(t, 50, view.Game.PieceCount())
}

func TestRoomManager_ReadyIsAtomicOnBadLayout(t *testing.T) {
	rm := NewRoomManager()
	roomID := fillRoom(t, rm, junqi.TwoPlayer)
	g := junqi.GeometryFor(junqi.TwoPlayer)

	_, err := rm.MarkReady(roomID, "u0", g.StandardLayout(0)[:10])
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	for _, p := range view.Players {
		assert.False(t, p.Ready)
		assert.Equal(t, -1, p.Seat)
	}

	// 用对方座位的布阵也不合法
	_, err = rm.MarkReady(roomID, "u0", g.StandardLayout(1))
	assert.True(t, IsValidation(err))

	_, err = rm.MarkReady(roomID, "ghost", g.StandardLayout(0))
	assert.True(t, IsNotFound(err))

	res, err := rm.MarkReady(roomID, "u0", g.StandardLayout(0))
	require.NoError(t, err)
	assert.False(t, res.Started)
	assert.Equal(t, RoomStatusWaiting, res.Room.Status)
}

func TestRoomManager_ReadyTwiceKeepsSeat(t *testing.T) {
	rm := NewRoomManager()
	roomID := fillRoom(t, rm, junqi.TwoPlayer)
	g := junqi.GeometryFor(junqi.TwoPlayer)

	res, err := rm.MarkReady(roomID, "u1", g.StandardLayout(0))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Seat)

	res, err = rm.MarkReady(roomID, "u1", g.StandardLayout(0))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Seat)
	assert.False(t, res.Started)

	res, err = rm.MarkReady(roomID, "u0", g.StandardLayout(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Seat)
	assert.True(t, res.Started)
	assert.Equal(t, "u1", res.Room.Game.PlayerAt(0).UserID)
}

func TestRoomManager_JoinPasswordAndReconnect(t *testing.T) {
	rm := NewRoomManager()
	res, err := rm.CreateRoom("secret", "私密房", "host", "房主", "c-host", RoomOptions{IsPrivate: true, Password: "1234"})
	require.NoError(t, err)
	assert.True(t, res.Room.IsPrivate)
	assert.Empty(t, rm.ListRooms())

	_, err = rm.JoinRoom("secret", "guest", "客人", "c-guest", "wrong", false)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	join, err := rm.JoinRoom("secret", "guest", "客人", "c-guest", "1234", false)
	require.NoError(t, err)
	assert.False(t, join.Reconnected)
	require.NotNil(t, join.Player)
	assert.Len(t, join.Room.Players, 2)

	// 已在房间中的玩家重连不需要密码
	again, err := rm.JoinRoom("secret", "guest", "", "c-guest-2", "", false)
	require.NoError(t, err)
	assert.True(t, again.Reconnected)
	assert.Len(t, again.Room.Players, 2)
	assert.Equal(t, "客人", again.Player.DisplayName)

	_, err = rm.JoinRoom("missing", "guest", "", "c", "", false)
	assert.True(t, IsNotFound(err))
}

func TestRoomManager_Spectators(t *testing.T) {
	rm := NewRoomManager()
	roomID := fillRoom(t, rm, junqi.TwoPlayer)

	// 房间已满
	res, err := rm.JoinRoom(roomID, "late", "", "c-late", "", false)
	require.NoError(t, err)
	assert.Nil(t, res.Player)
	require.NotNil(t, res.Spectator)
	assert.Len(t, res.Room.Players, 2)
	assert.Len(t, res.Room.Spectators, 1)

	// 主动观战
	rm2 := NewRoomManager()
	created, err := rm2.CreateRoom("r2", "", "host", "", "c-host", RoomOptions{})
	require.NoError(t, err)
	watch, err := rm2.JoinRoom(created.Room.ID, "watcher", "", "c-w", "", true)
	require.NoError(t, err)
	assert.NotNil(t, watch.Spectator)
	assert.Len(t, watch.Room.Players, 1)
	assert.Len(t, watch.Audience, 2)

	// 对局中加入
	rm3 := NewRoomManager()
	playing := startGame(t, rm3, junqi.TwoPlayer)
	res, err = rm3.JoinRoom(playing, "fan", "", "c-fan", "", false)
	require.NoError(t, err)
	assert.NotNil(t, res.Spectator)

	// 观战者离开不影响玩家
	left, err := rm3.LeaveRoom(playing, "fan")
	require.NoError(t, err)
	assert.False(t, left.Deleted)
	assert.Empty(t, left.Room.Spectators)
	assert.Len(t, left.Room.Players, 2)
}

func TestRoomManager_LeaveTransfersHostAndDeletes(t *testing.T) {
	rec := &eventRecorder{}
	rm := NewRoomManager(WithListener(rec.listen))
	roomID := fillRoom(t, rm, junqi.TwoPlayer)

	res, err := rm.LeaveRoom(roomID, "u0")
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, "u1", res.Room.Host)
	_, ok := rm.GetPlayerRoom("u0")
	assert.False(t, ok)

	_, err = rm.LeaveRoom(roomID, "u0")
	assert.True(t, IsNotFound(err))

	res, err = rm.LeaveRoom(roomID, "u1")
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Nil(t, res.Room)
	_, ok = rm.GetRoom(roomID)
	assert.False(t, ok)
	assert.Equal(t, []RoomEventType{EventRoomCreated, EventRoomDeleted}, rec.types())
}

func TestRoomManager_LeaveDuringGameKeepsSeat(t *testing.T) {
	clock := newFakeClock()
	rm := NewRoomManager(WithClock(clock.Now))
	roomID := startGame(t, rm, junqi.TwoPlayer)

	clock.Advance(time.Minute)
	res, err := rm.Disconnect(roomID, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, res.SeatKept)
	assert.False(t, res.Deleted)
	assert.Len(t, res.Room.Players, 2)
	assert.False(t, res.Room.Players[1].Online)
	assert.Equal(t, clock.Now().UnixMilli(), res.Room.Players[1].LastActiveAt)
	assert.Len(t, res.Audience, 1)

	// 保留座位的玩家路由不清理
	got, ok := rm.GetPlayerRoom("u1")
	assert.True(t, ok)
	assert.Equal(t, roomID, got)

	join, err := rm.JoinRoom(roomID, "u1", "", "c1-new", "", false)
	require.NoError(t, err)
	assert.True(t, join.Reconnected)
	require.NotNil(t, join.Player)
	assert.True(t, join.Player.Online)
	assert.Equal(t, 1, join.Player.Seat)

	// 所有玩家都离开后对局中的房间仍然保留
	_, err = rm.LeaveRoom(roomID, "u0")
	require.NoError(t, err)
	res, err = rm.LeaveRoom(roomID, "u1")
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	_, ok = rm.GetRoom(roomID)
	assert.True(t, ok)
}

func TestRoomManager_StaleDisconnectIgnored(t *testing.T) {
	rm := NewRoomManager()
	roomID := fillRoom(t, rm, junqi.TwoPlayer)

	_, err := rm.JoinRoom(roomID, "u1", "", "c1-new", "", false)
	require.NoError(t, err)

	res, err := rm.Disconnect(roomID, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, res.Ignored)

	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	assert.Len(t, view.Players, 2)
	assert.True(t, view.Players[1].Online)

	res, err = rm.Disconnect(roomID, "u1", "c1-new")
	require.NoError(t, err)
	assert.False(t, res.Ignored)
	assert.Len(t, res.Room.Players, 1)
}

func TestRoomManager_ApplyMoveErrors(t *testing.T) {
	rm := NewRoomManager()
	waiting := fillRoom(t, rm, junqi.TwoPlayer)
	_, err := rm.ApplyMove(waiting, "u0", "p0_0", junqi.Position{Row: 1, Col: 1})
	assert.True(t, IsValidation(err))

	roomID := startGame(t, rm, junqi.FourPlayer)
	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	piece := view.Game.PlayerAt(1).Pieces[0]

	_, err = rm.ApplyMove(roomID, "ghost", piece.ID, piece.Position)
	assert.True(t, IsNotFound(err))

	_, err = rm.ApplyMove(roomID, "u1", piece.ID, piece.Position)
	assert.True(t, IsValidation(err), "不是自己的回合: %v", err)

	_, err = rm.ApplyMove(roomID, "u0", "no-such-piece", junqi.Position{Row: 0, Col: 0})
	assert.True(t, IsNotFound(err))

	_, err = rm.ApplyMove(roomID, "u0", piece.ID, piece.Position)
	assert.True(t, IsValidation(err), "不能移动别人的棋子: %v", err)

	after, err := rm.RoomView(roomID)
	require.NoError(t, err)
	assert.Empty(t, after.Game.History)
	assert.Equal(t, 0, after.Game.CurrentTurn)
}

func TestRoomManager_ApplyMoveFinishesGame(t *testing.T) {
	rec := &eventRecorder{}
	rm := NewRoomManager(WithListener(rec.listen))
	roomID := startGame(t, rm, junqi.FourPlayer)
	installNearEndGame(t, rm, roomID)

	res, err := rm.ApplyMove(roomID, "u0", "cmd", junqi.Position{Row: 7, Col: 16})
	require.NoError(t, err)
	assert.True(t, res.Ended)
	require.NotNil(t, res.Winner)
	assert.Equal(t, 0, res.Winner.Team)
	assert.Equal(t, []int{0, 2}, res.Winner.Seats)
	require.NotNil(t, res.Record.Result)
	assert.Equal(t, junqi.Flag, res.Record.Result.Defender)
	assert.Equal(t, RoomStatusFinished, res.Room.Status)
	assert.Len(t, res.Audience, 4)

	ev, ok := rec.last(EventGameFinished)
	require.True(t, ok)
	assert.Equal(t, roomID, ev.RoomID)
	assert.Equal(t, RoomStatusFinished, ev.Room.Status)

	_, err = rm.ApplyMove(roomID, "u2", "guard2", junqi.Position{Row: 0, Col: 0})
	assert.True(t, IsValidation(err))

	// 结束后加入的人只能观战
	join, err := rm.JoinRoom(roomID, "fan", "", "c-fan", "", false)
	require.NoError(t, err)
	assert.NotNil(t, join.Spectator)

	// 结束后离开会真正移除玩家，全部离开后删除房间
	for i := 0; i < 4; i++ {
		_, err := rm.LeaveRoom(roomID, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
	}
	_, ok = rm.GetRoom(roomID)
	assert.False(t, ok)
}

func TestRoomManager_SnapshotIsIsolated(t *testing.T) {
	rm := NewRoomManager()
	roomID := startGame(t, rm, junqi.TwoPlayer)

	view, err := rm.RoomView(roomID)
	require.NoError(t, err)
	view.Game.Players[0].Pieces[0].Alive = false
	view.Players[0].Ready = false

	fresh, err := rm.RoomView(roomID)
	require.NoError(t, err)
	assert.True(t, fresh.Game.Players[0].Pieces[0].Alive)
	assert.True(t, fresh.Players[0].Ready)
}

func TestRoomManager_PanicIsIsolated(t *testing.T) {
	rm := NewRoomManager()
	a := fillRoom(t, rm, junqi.TwoPlayer)
	b, err := rm.CreateRoom("b", "", "other", "", "c-other", RoomOptions{Kind: junqi.TwoPlayer})
	require.NoError(t, err)

	err = rm.withRoom("test", a, func(r *Room) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, IsInvariant(err))

	// 锁已经释放，两个房间都能继续使用
	_, err = rm.JoinRoom(a, "u2", "", "c2", "", true)
	assert.NoError(t, err)
	_, err = rm.JoinRoom(b.Room.ID, "u3", "", "c3", "", false)
	assert.NoError(t, err)
}

func TestRoomManager_ListenerPanicDoesNotLeak(t *testing.T) {
	rm := NewRoomManager()
	rm.AddListener(func(ev RoomEvent) { panic("listener") })
	rec := &eventRecorder{}
	rm.AddListener(rec.listen)

	_, err := rm.CreateRoom("r", "", "host", "", "c", RoomOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RoomEventType{EventRoomCreated}, rec.types())
}

func TestRoomManager_ListRoomsAndStats(t *testing.T) {
	clock := newFakeClock()
	rm := NewRoomManager(WithClock(clock.Now))

	_, err := rm.CreateRoom("b", "", "h1", "", "c1", RoomOptions{})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = rm.CreateRoom("a", "", "h2", "", "c2", RoomOptions{Kind: junqi.TwoPlayer})
	require.NoError(t, err)
	_, err = rm.CreateRoom("p", "", "h3", "", "c3", RoomOptions{IsPrivate: true, Password: "x"})
	require.NoError(t, err)
	_, err = rm.JoinRoom("a", "g", "", "cg", "", true)
	require.NoError(t, err)

	list := rm.ListRooms()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, 1, list[1].SpectatorCount)
	assert.Equal(t, 2, list[1].MaxPlayers)

	rooms, players := rm.GetStats()
	assert.Equal(t, 3, rooms)
	assert.Equal(t, 3, players)
}

func TestRoomManager_DeleteRoomAndClose(t *testing.T) {
	rm := NewRoomManager()
	roomID := startGame(t, rm, junqi.TwoPlayer)

	require.NoError(t, rm.DeleteRoom(roomID))
	assert.True(t, IsNotFound(rm.DeleteRoom(roomID)))
	_, ok := rm.GetPlayerRoom("u0")
	assert.False(t, ok)
	_, err := rm.ApplyMove(roomID, "u0", "x", junqi.Position{})
	assert.True(t, IsNotFound(err))

	fillRoom(t, rm, junqi.FourPlayer)
	rm.Close()
	rm.Close()
	rooms, _ := rm.GetStats()
	assert.Zero(t, rooms)
}

func TestRoomManager_ConcurrentRooms(t *testing.T) {
	rm := NewRoomManager()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("room-%d", i)
			_, err := rm.CreateRoom(id, "", fmt.Sprintf("h%d", i), "", "c", RoomOptions{Kind: junqi.TwoPlayer})
			assert.NoError(t, err)
			_, err = rm.JoinRoom(id, fmt.Sprintf("g%d", i), "", "c", "", false)
			assert.NoError(t, err)
			_ = rm.ListRooms()
		}(i)
	}
	wg.Wait()
	rooms, players := rm.GetStats()
	assert.Equal(t, 16, rooms)
	assert.Equal(t, 32, players)
}

package game

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

const (
	DefaultInactivityTimeout = 2 * time.Hour
	DefaultSweepInterval     = time.Hour
)

// RoomManager 房间管理器
// 所有房间状态只保存在进程内存中，每个房间一把锁，房间之间互不阻塞
// 加锁顺序：先 RoomManager.mu 再 Room.mu，持有房间锁时不会再去拿 RoomManager.mu
type RoomManager struct {
	rooms  map[string]*Room // roomID -> Room
	mu     sync.RWMutex
	routes sync.Map // userID -> roomID

	policy            atomic.Pointer[junqi.LayoutPolicy]
	inactivityTimeout atomic.Int64
	now               func() time.Time

	listenerMu sync.RWMutex
	listeners  []RoomListener

	sweeper   *Sweeper
	closeOnce sync.Once
}

type Option func(*RoomManager)

// WithLayoutPolicy 布阵约束
func WithLayoutPolicy(policy junqi.LayoutPolicy) Option {
	return func(rm *RoomManager) { rm.SetLayoutPolicy(policy) }
}

// WithInactivityTimeout 等待中玩家的超时时间
func WithInactivityTimeout(d time.Duration) Option {
	return func(rm *RoomManager) { rm.SetInactivityTimeout(d) }
}

// WithSweepInterval 超时检查间隔
func WithSweepInterval(d time.Duration) Option {
	return func(rm *RoomManager) { rm.sweeper.interval = d }
}

// WithClock 替换时间源，测试用
func WithClock(now func() time.Time) Option {
	return func(rm *RoomManager) { rm.now = now }
}

func WithListener(l RoomListener) Option {
	return func(rm *RoomManager) { rm.listeners = append(rm.listeners, l) }
}

// NewRoomManager 创建空的房间管理器，超时检查需要调用 StartSweeper 启动
func NewRoomManager(opts ...Option) *RoomManager {
	rm := &RoomManager{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
	rm.SetLayoutPolicy(junqi.LayoutPolicy{})
	rm.SetInactivityTimeout(DefaultInactivityTimeout)
	rm.sweeper = NewSweeper(rm, DefaultSweepInterval)
	for _, opt := range opts {
		opt(rm)
	}
	return rm
}

func (rm *RoomManager) SetLayoutPolicy(policy junqi.LayoutPolicy) {
	rm.policy.Store(&policy)
}

func (rm *RoomManager) LayoutPolicy() junqi.LayoutPolicy {
	return *rm.policy.Load()
}

func (rm *RoomManager) SetInactivityTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultInactivityTimeout
	}
	rm.inactivityTimeout.Store(int64(d))
}

func (rm *RoomManager) InactivityTimeout() time.Duration {
	return time.Duration(rm.inactivityTimeout.Load())
}

// AddListener 注册房间事件监听
func (rm *RoomManager) AddListener(l RoomListener) {
	rm.listenerMu.Lock()
	defer rm.listenerMu.Unlock()
	rm.listeners = append(rm.listeners, l)
}

// emit 在释放房间锁之后调用
func (rm *RoomManager) emit(ev RoomEvent) {
	rm.listenerMu.RLock()
	listeners := rm.listeners
	rm.listenerMu.RUnlock()

	if ev.At.IsZero() {
		ev.At = rm.now()
	}
	for _, l := range listeners {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Error("RoomManager 事件监听异常: event=%s room=%s err=%v", ev.Type, ev.RoomID, p)
				}
			}()
			l(ev)
		}()
	}
}

// StartSweeper 启动超时检查，ctx 取消后停止
func (rm *RoomManager) StartSweeper(ctx context.Context) {
	rm.sweeper.Start(ctx)
}

func (rm *RoomManager) Sweeper() *Sweeper {
	return rm.sweeper
}

// withRoom 持有房间锁执行 fn，fn 中的 panic 转成 InvariantViolation，不影响其他房间
func (rm *RoomManager) withRoom(op, roomID string, fn func(r *Room) error) (err error) {
	room, ok := rm.GetRoom(roomID)
	if !ok {
		return notFoundf("房间 %s 不存在", roomID)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("RoomManager %s 房间 %s 发生异常: %v\n%s", op, roomID, p, debug.Stack())
			err = invariantf("房间 %s 内部错误", roomID)
		}
	}()

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return notFoundf("房间 %s 不存在", roomID)
	}
	err = fn(room)
	if IsInvariant(err) {
		log.Error("RoomManager %s 房间 %s 状态异常: %v", op, roomID, err)
	}
	return err
}

// CreateRoom 创建房间，房主作为第一个玩家加入
// id 为空时自动生成，name 为空时使用默认房间名
func (rm *RoomManager) CreateRoom(id, name, hostUserID, hostDisplayName, connID string, opts RoomOptions) (*JoinResult, error) {
	if hostUserID == "" {
		return nil, validationf("用户ID不能为空")
	}
	if opts.Kind == "" {
		opts.Kind = junqi.FourPlayer
	}
	if !opts.Kind.Valid() {
		return nil, validationf("不支持的房间类型: %s", opts.Kind)
	}
	if id == "" {
		id = GenerateRoomID()
	}
	if name == "" {
		name = DefaultRoomName(opts.Kind)
	}

	now := rm.now()
	room, err := newRoom(id, name, NewPlayerInfo(hostUserID, hostDisplayName, connID, now), opts, now)
	if err != nil {
		return nil, invariantf("%v", err)
	}

	rm.mu.Lock()
	if _, exists := rm.rooms[id]; exists {
		rm.mu.Unlock()
		return nil, validationf("房间 %s 已存在", id)
	}
	rm.rooms[id] = room
	rm.mu.Unlock()

	room.mu.RLock()
	res := &JoinResult{
		Room:     room.view(),
		Created:  true,
		Audience: room.audience(),
	}
	room.mu.RUnlock()
	res.Player = &res.Room.Players[0]

	rm.routes.Store(hostUserID, id)
	log.Info("RoomManager 创建房间 %s，类型: %s，房主: %s", id, opts.Kind, hostUserID)
	rm.emit(RoomEvent{Type: EventRoomCreated, RoomID: id, Room: res.Room, UserID: hostUserID})
	return res, nil
}

// JoinRoom 加入房间
//   - 已在房间中的玩家视为重连，只更新连接和活跃时间
//   - 私密房间需要密码
//   - 主动观战、对局已开始或房间已满时以观战者身份加入
func (rm *RoomManager) JoinRoom(roomID, userID, displayName, connID, password string, asSpectator bool) (*JoinResult, error) {
	if userID == "" {
		return nil, validationf("用户ID不能为空")
	}
	var res *JoinResult
	err := rm.withRoom("JoinRoom", roomID, func(r *Room) error {
		now := rm.now()
		res = &JoinResult{}

		if _, p := r.player(userID); p != nil {
			p.SetOnline(connID, now)
			if displayName != "" {
				p.DisplayName = displayName
			}
			res.Reconnected = true
			log.Info("Room[%s] 玩家 %s 重新连接，座位: %d", r.ID, userID, p.Seat)
		} else {
			if !r.checkPassword(password) {
				return validationf("房间密码错误")
			}
			if _, s := r.spectator(userID); s != nil {
				s.ConnID = connID
				res.Reconnected = true
			} else if asSpectator || r.Status != RoomStatusWaiting || r.isFull() {
				r.Spectators = append(r.Spectators, &SpectatorInfo{
					UserID:      userID,
					DisplayName: displayName,
					ConnID:      connID,
					JoinedAt:    now,
				})
				log.Info("Room[%s] %s 以观战者身份加入", r.ID, userID)
			} else {
				r.Players = append(r.Players, NewPlayerInfo(userID, displayName, connID, now))
				log.Info("Room[%s] 玩家 %s 加入房间，当前人数: %d/%d", r.ID, userID, len(r.Players), r.Capacity)
			}
		}

		res.Room = r.view()
		res.Audience = r.audience()
		for i := range res.Room.Players {
			if res.Room.Players[i].UserID == userID {
				res.Player = &res.Room.Players[i]
			}
		}
		if res.Player == nil {
			for i := range res.Room.Spectators {
				if res.Room.Spectators[i].UserID == userID {
					res.Spectator = &res.Room.Spectators[i]
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rm.routes.Store(userID, roomID)
	return res, nil
}

// LeaveRoom 离开房间
// 对局中的玩家只标记离线并保留座位，其他情况从玩家和观战者中移除
// 房间没有玩家时删除
func (rm *RoomManager) LeaveRoom(roomID, userID string) (*LeaveResult, error) {
	return rm.leave("LeaveRoom", roomID, userID, "")
}

// Disconnect 连接断开，等同于离开房间
// connID 与玩家当前连接不一致时说明已经重连，忽略这次断开
func (rm *RoomManager) Disconnect(roomID, userID, connID string) (*LeaveResult, error) {
	return rm.leave("Disconnect", roomID, userID, connID)
}

func (rm *RoomManager) leave(op, roomID, userID, connID string) (*LeaveResult, error) {
	var res *LeaveResult
	stale := false
	err := rm.withRoom(op, roomID, func(r *Room) error {
		var err error
		res, stale, err = rm.leaveLocked(r, userID, connID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if stale {
		return res, nil
	}
	rm.finishLeave(res)
	return res, nil
}

// leaveLocked 需要持有房间锁，超时踢人也走这里
func (rm *RoomManager) leaveLocked(r *Room, userID, connID string) (*LeaveResult, bool, error) {
	now := rm.now()
	res := &LeaveResult{RoomID: r.ID, UserID: userID}

	if idx, p := r.player(userID); p != nil {
		if connID != "" && p.ConnID != connID {
			res.Ignored = true
			return res, true, nil
		}
		if r.Status == RoomStatusPlaying && p.Seat >= 0 {
			p.SetOffline(now)
			res.SeatKept = true
			log.Info("Room[%s] 玩家 %s 对局中离开，保留座位 %d", r.ID, userID, p.Seat)
		} else {
			r.removePlayer(idx)
			log.Info("Room[%s] 玩家 %s 离开房间", r.ID, userID)
		}
	} else if idx, s := r.spectator(userID); s != nil {
		if connID != "" && s.ConnID != connID {
			res.Ignored = true
			return res, true, nil
		}
		r.removeSpectator(idx)
	} else {
		return nil, false, notFoundf("玩家 %s 不在房间 %s 中", userID, r.ID)
	}

	res.Deleted = r.removable()
	if !res.Deleted {
		res.Room = r.view()
	}
	res.Audience = r.audience()
	return res, false, nil
}

func (rm *RoomManager) finishLeave(res *LeaveResult) {
	if !res.SeatKept {
		rm.routes.CompareAndDelete(res.UserID, res.RoomID)
	}
	if res.Deleted {
		res.Deleted = rm.deleteIfRemovable(res.RoomID)
	}
}

// deleteIfRemovable 拿到 RoomManager 写锁后再次确认房间为空，避免与并发加入冲突
func (rm *RoomManager) deleteIfRemovable(roomID string) bool {
	rm.mu.Lock()
	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return false
	}
	room.mu.Lock()
	deleted := room.removable()
	if deleted {
		room.closed = true
		delete(rm.rooms, roomID)
	}
	room.mu.Unlock()
	rm.mu.Unlock()

	if deleted {
		log.Info("RoomManager 删除房间 %s", roomID)
		rm.emit(RoomEvent{Type: EventRoomDeleted, RoomID: roomID})
	}
	return deleted
}

// DeleteRoom 强制删除房间，对局中的房间也会被删除
func (rm *RoomManager) DeleteRoom(roomID string) error {
	rm.mu.Lock()
	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return notFoundf("房间 %s 不存在", roomID)
	}
	room.mu.Lock()
	room.closed = true
	users := make([]string, 0, len(room.Players)+len(room.Spectators))
	for _, p := range room.Players {
		users = append(users, p.UserID)
	}
	for _, s := range room.Spectators {
		users = append(users, s.UserID)
	}
	delete(rm.rooms, roomID)
	room.mu.Unlock()
	rm.mu.Unlock()

	for _, u := range users {
		rm.routes.CompareAndDelete(u, roomID)
	}
	log.Info("RoomManager 删除房间 %s", roomID)
	rm.emit(RoomEvent{Type: EventRoomDeleted, RoomID: roomID})
	return nil
}

// MarkReady 提交布阵并准备
// 首次准备时分配第一个空座位；最后一名玩家准备后原子地创建对局并进入游戏中
func (rm *RoomManager) MarkReady(roomID, userID string, layout []junqi.Placement) (*ReadyResult, error) {
	var res *ReadyResult
	err := rm.withRoom("MarkReady", roomID, func(r *Room) error {
		if r.Status != RoomStatusWaiting {
			return validationf("游戏已经开始")
		}
		_, p := r.player(userID)
		if p == nil {
			return notFoundf("玩家 %s 不在房间 %s 中", userID, r.ID)
		}

		seat := p.Seat
		if seat < 0 {
			seat = r.findAvailableSeat()
			if seat < 0 {
				return validationf("没有可用座位")
			}
		}
		g := junqi.GeometryFor(r.Kind)
		if err := g.ValidateLayout(layout, seat, rm.LayoutPolicy()); err != nil {
			return validationf("布阵不合法: %v", err)
		}
		layout = append([]junqi.Placement(nil), layout...)

		now := rm.now()
		var game *junqi.GameState
		if r.quorumWith(userID) {
			var err error
			game, err = r.buildGame(p, seat, layout, now)
			if err != nil {
				return invariantf("房间 %s 创建对局失败: %v", r.ID, err)
			}
		}

		p.Seat = seat
		p.Ready = true
		p.Layout = layout
		p.Touch(now)
		if game != nil {
			r.Game = game
			r.Status = RoomStatusPlaying
			log.Info("Room[%s] 所有玩家已准备，游戏开始", r.ID)
		}

		res = &ReadyResult{Room: r.view(), Seat: seat, Started: game != nil, Audience: r.audience()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Started {
		rm.emit(RoomEvent{Type: EventGameStarted, RoomID: roomID, Room: res.Room})
	}
	return res, nil
}

// ApplyMove 走子
func (rm *RoomManager) ApplyMove(roomID, userID, pieceID string, to junqi.Position) (*MoveResult, error) {
	var res *MoveResult
	err := rm.withRoom("ApplyMove", roomID, func(r *Room) error {
		if r.Status != RoomStatusPlaying || r.Game == nil {
			return validationf("游戏未开始")
		}
		_, p := r.player(userID)
		if p == nil {
			return notFoundf("玩家 %s 不在房间 %s 中", userID, r.ID)
		}

		now := rm.now()
		outcome, err := junqi.ExecuteMove(r.Game, userID, pieceID, to, now)
		if err != nil {
			return classify(err)
		}
		p.Touch(now)
		if outcome.Ended {
			r.Status = RoomStatusFinished
			log.Info("Room[%s] 游戏结束，获胜方: %+v", r.ID, outcome.Winner)
		}

		res = &MoveResult{
			Room:     r.view(),
			Record:   outcome.Record,
			Ended:    outcome.Ended,
			Winner:   outcome.Winner,
			Audience: r.audience(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Ended {
		rm.emit(RoomEvent{Type: EventGameFinished, RoomID: roomID, Room: res.Room})
	}
	return res, nil
}

// UpdateActivity 刷新玩家活跃时间
func (rm *RoomManager) UpdateActivity(roomID, userID string) error {
	return rm.withRoom("UpdateActivity", roomID, func(r *Room) error {
		_, p := r.player(userID)
		if p == nil {
			return notFoundf("玩家 %s 不在房间 %s 中", userID, r.ID)
		}
		p.Touch(rm.now())
		return nil
	})
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(roomID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, exists := rm.rooms[roomID]
	return room, exists
}

// RoomView 房间快照
func (rm *RoomManager) RoomView(roomID string) (*RoomView, error) {
	room, ok := rm.GetRoom(roomID)
	if !ok {
		return nil, notFoundf("房间 %s 不存在", roomID)
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	if room.closed {
		return nil, notFoundf("房间 %s 不存在", roomID)
	}
	return room.view(), nil
}

// GetPlayerRoom 玩家最近加入的房间
func (rm *RoomManager) GetPlayerRoom(userID string) (string, bool) {
	v, ok := rm.routes.Load(userID)
	if !ok {
		return "", false
	}
	roomID := v.(string)
	if _, exists := rm.GetRoom(roomID); !exists {
		rm.routes.CompareAndDelete(userID, roomID)
		return "", false
	}
	return roomID, true
}

// ListRooms 公开房间列表，按创建时间排序
func (rm *RoomManager) ListRooms() []RoomSummary {
	list := make([]RoomSummary, 0)
	for _, room := range rm.GetAllRooms() {
		room.mu.RLock()
		if !room.IsPrivate && !room.closed {
			list = append(list, room.summary())
		}
		room.mu.RUnlock()
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// GetStats 获取统计信息（房间数、玩家数），供 Monitor 使用
func (rm *RoomManager) GetStats() (gameCount int, playerCount int) {
	for _, room := range rm.GetAllRooms() {
		room.mu.RLock()
		gameCount++
		playerCount += len(room.Players)
		room.mu.RUnlock()
	}
	return gameCount, playerCount
}

// GetAllRooms 获取所有房间列表（返回副本）
func (rm *RoomManager) GetAllRooms() []*Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Close 停止超时检查并清空所有房间
func (rm *RoomManager) Close() {
	rm.closeOnce.Do(func() {
		rm.sweeper.Stop()

		rm.mu.Lock()
		for id, room := range rm.rooms {
			room.mu.Lock()
			room.closed = true
			room.mu.Unlock()
			delete(rm.rooms, id)
		}
		rm.mu.Unlock()
		rm.routes.Range(func(k, _ any) bool {
			rm.routes.Delete(k)
			return true
		})
		log.Info("RoomManager 已关闭")
	})
}

func (rm *RoomManager) String() string {
	games, players := rm.GetStats()
	return fmt.Sprintf("RoomManager{rooms=%d, players=%d}", games, players)
}

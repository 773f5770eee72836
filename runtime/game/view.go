package game

import (
	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

// Member 广播对象，在房间锁内收集，锁外发送
type Member struct {
	UserID    string
	ConnID    string
	Seat      int // 观战者和未分配座位的玩家为 -1
	Spectator bool
}

// PlayerView 对外展示的玩家信息，不含布阵
type PlayerView struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"username"`
	Seat         int    `json:"position"`
	Ready        bool   `json:"isReady"`
	Online       bool   `json:"isOnline"`
	JoinedAt     int64  `json:"joinedAt"`
	LastActiveAt int64  `json:"lastActiveAt"`
}

type SpectatorView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"username"`
	JoinedAt    int64  `json:"joinedAt"`
}

// RoomView 房间快照
type RoomView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Host       string           `json:"host"`
	Kind       junqi.Variant    `json:"roomType"`
	Status     RoomStatus       `json:"status"`
	MaxPlayers int              `json:"maxPlayers"`
	IsPrivate  bool             `json:"isPrivate"`
	Players    []PlayerView     `json:"players"`
	Spectators []SpectatorView  `json:"spectators"`
	Game       *junqi.GameState `json:"gameState,omitempty"`
	CreatedAt  int64            `json:"createdAt"`
}

// RoomSummary 房间列表项
type RoomSummary struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Host           string        `json:"host"`
	Kind           junqi.Variant `json:"roomType"`
	Status         RoomStatus    `json:"status"`
	PlayerCount    int           `json:"playerCount"`
	MaxPlayers     int           `json:"maxPlayers"`
	SpectatorCount int           `json:"spectatorCount"`
	IsPrivate      bool          `json:"isPrivate"`
	CreatedAt      int64         `json:"createdAt"`
}

// view 需要持有房间锁，对局状态为深拷贝
func (r *Room) view() *RoomView {
	v := &RoomView{
		ID:         r.ID,
		Name:       r.Name,
		Host:       r.HostUserID,
		Kind:       r.Kind,
		Status:     r.Status,
		MaxPlayers: r.Capacity,
		IsPrivate:  r.IsPrivate,
		Players:    make([]PlayerView, 0, len(r.Players)),
		Spectators: make([]SpectatorView, 0, len(r.Spectators)),
		CreatedAt:  r.CreatedAt.UnixMilli(),
	}
	for _, p := range r.Players {
		v.Players = append(v.Players, PlayerView{
			UserID:       p.UserID,
			DisplayName:  p.DisplayName,
			Seat:         p.Seat,
			Ready:        p.Ready,
			Online:       p.Online,
			JoinedAt:     p.JoinedAt.UnixMilli(),
			LastActiveAt: p.LastActiveAt.UnixMilli(),
		})
	}
	for _, s := range r.Spectators {
		v.Spectators = append(v.Spectators, SpectatorView{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			JoinedAt:    s.JoinedAt.UnixMilli(),
		})
	}
	if r.Game != nil {
		v.Game = r.Game.Clone()
	}
	return v
}

func (r *Room) summary() RoomSummary {
	return RoomSummary{
		ID:             r.ID,
		Name:           r.Name,
		Host:           r.HostUserID,
		Kind:           r.Kind,
		Status:         r.Status,
		PlayerCount:    len(r.Players),
		MaxPlayers:     r.Capacity,
		SpectatorCount: len(r.Spectators),
		IsPrivate:      r.IsPrivate,
		CreatedAt:      r.CreatedAt.UnixMilli(),
	}
}

// ForViewer 按观察者座位生成房间快照，RedactHidden 打开时隐藏未翻开的敌方棋子
func (v *RoomView) ForViewer(seat int, redact bool) *RoomView {
	if v == nil || v.Game == nil || !redact {
		return v
	}
	cp := *v
	cp.Game = v.Game.Redacted(seat)
	return &cp
}

// JoinResult 加入/创建房间的结果
type JoinResult struct {
	Room        *RoomView
	Player      *PlayerView    // 以玩家身份加入时非空
	Spectator   *SpectatorView // 以观战身份加入时非空
	Created     bool
	Reconnected bool
	Audience    []Member
}

// LeaveResult 离开房间的结果
type LeaveResult struct {
	RoomID   string
	UserID   string
	Room     *RoomView // 房间被删除时为 nil
	Deleted  bool
	SeatKept bool // 对局中离开，座位保留等待重连
	Ignored  bool // 断开的是旧连接，玩家已经重连
	Audience []Member
}

// ReadyResult 准备的结果
type ReadyResult struct {
	Room     *RoomView
	Seat     int
	Started  bool
	Audience []Member
}

// MoveResult 走子的结果
type MoveResult struct {
	Room     *RoomView
	Record   junqi.MoveRecord
	Ended    bool
	Winner   *junqi.Winner
	Audience []Member
}

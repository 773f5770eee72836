package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
	"golang.org/x/crypto/bcrypt"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "WAITING"  // 等待中
	RoomStatusPlaying  RoomStatus = "PLAYING"  // 游戏中
	RoomStatusFinished RoomStatus = "FINISHED" // 已结束
)

// RoomOptions 创建房间的选项
type RoomOptions struct {
	IsPrivate bool
	Password  string
	Kind      junqi.Variant
}

// Room 游戏房间
// 以下方法都要求调用方持有 mu
type Room struct {
	ID         string
	Name       string
	HostUserID string
	Kind       junqi.Variant
	Capacity   int
	IsPrivate  bool
	Players    []*PlayerInfo // 按加入顺序
	Spectators []*SpectatorInfo
	Status     RoomStatus
	Game       *junqi.GameState
	CreatedAt  time.Time

	passwordHash []byte
	closed       bool // 已从 RoomManager 删除
	mu           sync.RWMutex
}

// GenerateRoomID 生成房间 ID
// 格式：room_<timestamp>_<random>
func GenerateRoomID() string {
	timestamp := time.Now().Unix()
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("room_%d_%s", timestamp, hex.EncodeToString(randomBytes))
}

// DefaultRoomName 默认房间名
func DefaultRoomName(kind junqi.Variant) string {
	if kind == junqi.TwoPlayer {
		return "二人军棋房间"
	}
	return "四国军棋房间"
}

// newRoom 创建新房间，房主作为第一个玩家加入（座位在准备时分配）
func newRoom(id, name string, host *PlayerInfo, opts RoomOptions, now time.Time) (*Room, error) {
	r := &Room{
		ID:         id,
		Name:       name,
		HostUserID: host.UserID,
		Kind:       opts.Kind,
		Capacity:   opts.Kind.Capacity(),
		IsPrivate:  opts.IsPrivate,
		Players:    []*PlayerInfo{host},
		Spectators: make([]*SpectatorInfo, 0),
		Status:     RoomStatusWaiting,
		CreatedAt:  now,
	}
	if opts.IsPrivate && opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("房间密码加密失败: %w", err)
		}
		r.passwordHash = hash
	}
	return r, nil
}

func (r *Room) checkPassword(password string) bool {
	if !r.IsPrivate || len(r.passwordHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) == nil
}

func (r *Room) player(userID string) (int, *PlayerInfo) {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) spectator(userID string) (int, *SpectatorInfo) {
	for i, s := range r.Spectators {
		if s.UserID == userID {
			return i, s
		}
	}
	return -1, nil
}

func (r *Room) isFull() bool {
	return len(r.Players) >= r.Capacity
}

// findAvailableSeat 第一个未被占用的座位，没有返回 -1
func (r *Room) findAvailableSeat() int {
	occupied := make([]bool, r.Capacity)
	for _, p := range r.Players {
		if p.Seat >= 0 && p.Seat < r.Capacity {
			occupied[p.Seat] = true
		}
	}
	for seat, used := range occupied {
		if !used {
			return seat
		}
	}
	return -1
}

// quorumWith 假设 userID 已准备后，是否满足开局条件
func (r *Room) quorumWith(userID string) bool {
	if len(r.Players) != r.Capacity {
		return false
	}
	for _, p := range r.Players {
		if p.UserID != userID && !p.Ready {
			return false
		}
	}
	return true
}

// removePlayer 移除玩家并处理房主转移
func (r *Room) removePlayer(idx int) {
	userID := r.Players[idx].UserID
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	if r.HostUserID == userID {
		r.HostUserID = ""
		if len(r.Players) > 0 {
			r.HostUserID = r.Players[0].UserID
		}
	}
}

func (r *Room) removeSpectator(idx int) {
	r.Spectators = append(r.Spectators[:idx], r.Spectators[idx+1:]...)
}

// removable 没有玩家且不在对局中
func (r *Room) removable() bool {
	return len(r.Players) == 0 && r.Status != RoomStatusPlaying
}

// abandoned 对局中所有玩家都离线超过 timeout
func (r *Room) abandoned(now time.Time, timeout time.Duration) bool {
	if r.Status != RoomStatusPlaying {
		return false
	}
	for _, p := range r.Players {
		if p.Online || now.Sub(p.LastActiveAt) <= timeout {
			return false
		}
	}
	return true
}

// audience 当前房间的所有连接，广播用
func (r *Room) audience() []Member {
	members := make([]Member, 0, len(r.Players)+len(r.Spectators))
	for _, p := range r.Players {
		if p.Online && p.ConnID != "" {
			members = append(members, Member{UserID: p.UserID, ConnID: p.ConnID, Seat: p.Seat})
		}
	}
	for _, s := range r.Spectators {
		members = append(members, Member{UserID: s.UserID, ConnID: s.ConnID, Seat: -1, Spectator: true})
	}
	return members
}

// buildGame 按座位顺序组装开局状态，pending 为尚未提交的准备请求
func (r *Room) buildGame(pending *PlayerInfo, seat int, layout []junqi.Placement, now time.Time) (*junqi.GameState, error) {
	players := make([]*junqi.Player, r.Capacity)
	for _, p := range r.Players {
		s, l := p.Seat, p.Layout
		if p == pending {
			s, l = seat, layout
		}
		if s < 0 || s >= r.Capacity || players[s] != nil {
			return nil, fmt.Errorf("玩家 %s 座位 %d 异常", p.UserID, s)
		}
		pieces, err := junqi.AssignLayout(s, l)
		if err != nil {
			return nil, err
		}
		players[s] = &junqi.Player{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Seat:        s,
			Ready:       true,
			Pieces:      pieces,
		}
	}
	return junqi.NewGameState(r.ID, r.Kind, players, now)
}

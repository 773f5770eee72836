package game

import (
	"time"

	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

// PlayerInfo 房间中的玩家
type PlayerInfo struct {
	UserID       string
	DisplayName  string
	ConnID       string // 当前连接，断线后保留以便识别过期的断线通知
	Seat         int    // 准备时分配，-1 表示未分配
	Ready        bool
	Layout       []junqi.Placement
	Online       bool
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// NewPlayerInfo 创建玩家信息
func NewPlayerInfo(userID, displayName, connID string, now time.Time) *PlayerInfo {
	return &PlayerInfo{
		UserID:       userID,
		DisplayName:  displayName,
		ConnID:       connID,
		Seat:         -1,
		Online:       true,
		JoinedAt:     now,
		LastActiveAt: now,
	}
}

// SetOffline 设置玩家离线
func (pi *PlayerInfo) SetOffline(now time.Time) {
	pi.Online = false
	pi.LastActiveAt = now
}

// SetOnline 设置玩家在线（重连）
func (pi *PlayerInfo) SetOnline(connID string, now time.Time) {
	pi.Online = true
	pi.ConnID = connID
	pi.LastActiveAt = now
}

func (pi *PlayerInfo) Touch(now time.Time) {
	pi.LastActiveAt = now
}

// SpectatorInfo 观战者
type SpectatorInfo struct {
	UserID      string
	DisplayName string
	ConnID      string
	JoinedAt    time.Time
}

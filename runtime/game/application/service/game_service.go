package service

import (
	"context"
	"time"
)

// GameService 房间之外的旁路：对局存档、路由提示、事件发布
// 任何一个旁路不可用都不影响房间本身
type GameService interface {
	// RecordMatch 对局结束或被回收时保存存档
	RecordMatch(ctx context.Context, req *RecordMatchReq) error

	// PublishRoomEvent 发布房间生命周期事件
	PublishRoomEvent(ctx context.Context, req *RoomEventReq) error

	// SaveRoute 记录用户最近所在的房间
	SaveRoute(ctx context.Context, userID, roomID string) error

	// LookupRoute 查找用户最近所在的房间，没有时返回 ErrRouteNotFound
	LookupRoute(ctx context.Context, userID string) (string, error)

	RemoveRoute(ctx context.Context, userID string) error
}

type MatchPlayer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"username"`
	Seat        int    `json:"seat"`
	Team        int    `json:"team"`
	Alive       bool   `json:"alive"`
}

type RecordMatchReq struct {
	RoomID      string        `json:"roomId"`
	Variant     string        `json:"variant"`
	Players     []MatchPlayer `json:"players"`
	Finished    bool          `json:"finished"` // false 表示未分胜负被回收
	WinnerTeam  int           `json:"winnerTeam"`
	WinnerSeats []int         `json:"winnerSeats"`
	MoveCount   int           `json:"moveCount"`
	StartedAt   time.Time     `json:"startedAt"`
	EndedAt     time.Time     `json:"endedAt"`
}

type RoomEventReq struct {
	RoomID      string    `json:"roomId"`
	Event       string    `json:"event"`
	Variant     string    `json:"variant"`
	Status      string    `json:"status"`
	UserID      string    `json:"userId"`
	Players     []string  `json:"players"`
	WinnerTeam  *int      `json:"winnerTeam"`
	WinnerSeats []int     `json:"winnerSeats"`
	At          time.Time `json:"at"`
}

package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MatchStatusCompleted = "completed"
	MatchStatusAborted   = "aborted"
)

// MatchRecord 一局军棋的存档
type MatchRecord struct {
	ID          primitive.ObjectID `bson:"_id"`
	RoomID      string             `bson:"room_id"`
	Variant     string             `bson:"variant"` // FOUR_PLAYER / TWO_PLAYER
	Players     []PlayerInfo       `bson:"players"`
	WinnerTeam  int                `bson:"winner_team"` // 没有获胜方时为 -1
	WinnerSeats []int              `bson:"winner_seats"`
	MoveCount   int                `bson:"move_count"`
	StartTime   time.Time          `bson:"start_time"`
	EndTime     time.Time          `bson:"end_time"`
	Duration    int                `bson:"duration"` // 秒
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	UserID    string `bson:"user_id"`
	SeatIndex int    `bson:"seat_index"`
	Team      int    `bson:"team"`
	Nickname  string `bson:"nickname,omitempty"`
	Survived  bool   `bson:"survived"`
}

// NewMatchRecord 创建对局存档
func NewMatchRecord(roomID, variant string, players []PlayerInfo, startTime time.Time) *MatchRecord {
	return &MatchRecord{
		ID:         primitive.NewObjectID(),
		RoomID:     roomID,
		Variant:    variant,
		Players:    players,
		WinnerTeam: -1,
		StartTime:  startTime,
		Status:     MatchStatusAborted,
		CreatedAt:  time.Now(),
	}
}

// Complete 设置获胜方并结束
func (mr *MatchRecord) Complete(team int, seats []int, moveCount int, endTime time.Time) {
	mr.WinnerTeam = team
	mr.WinnerSeats = seats
	mr.MoveCount = moveCount
	mr.finish(endTime)
	mr.Status = MatchStatusCompleted
}

// Abort 对局未分出胜负（房间被回收）
func (mr *MatchRecord) Abort(moveCount int, endTime time.Time) {
	mr.MoveCount = moveCount
	mr.finish(endTime)
	mr.Status = MatchStatusAborted
}

func (mr *MatchRecord) finish(endTime time.Time) {
	mr.EndTime = endTime
	if !mr.StartTime.IsZero() && endTime.After(mr.StartTime) {
		mr.Duration = int(endTime.Sub(mr.StartTime).Seconds())
	}
}

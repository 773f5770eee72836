package transfer

// RoomEventPacket 发布到 nats 的房间生命周期事件，供外部观察者订阅
type RoomEventPacket struct {
	Source      string   `json:"source"` // 发布事件的节点 ID
	RoomID      string   `json:"roomId"`
	Event       string   `json:"event"`
	Variant     string   `json:"variant,omitempty"`
	Status      string   `json:"status,omitempty"`
	Players     []string `json:"players,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	WinnerTeam  *int     `json:"winnerTeam,omitempty"`
	WinnerSeats []int    `json:"winnerSeats,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

package game

import "time"

// RoomEventType 房间生命周期事件
type RoomEventType string

const (
	EventRoomCreated   RoomEventType = "created"
	EventGameStarted   RoomEventType = "started"
	EventGameFinished  RoomEventType = "finished"
	EventRoomDeleted   RoomEventType = "deleted"
	EventPlayerEvicted RoomEventType = "evicted"
)

// RoomEvent 房间事件，在释放房间锁之后同步派发
type RoomEvent struct {
	Type   RoomEventType
	RoomID string
	Room   *RoomView // created/started/finished 时为当时的快照
	UserID string
	Leave  *LeaveResult // evicted 时非空
	At     time.Time
}

// RoomListener 房间事件监听，不能阻塞
type RoomListener func(ev RoomEvent)

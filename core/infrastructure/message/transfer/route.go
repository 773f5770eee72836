package transfer

import "strings"

// 房间事件主题：<prefix>.room.<roomID>.<event>
const (
	DefaultSubjectPrefix = "junqi"
	RoomSubjectToken     = "room"

	RoomEventCreated  = "created"
	RoomEventStarted  = "started"
	RoomEventFinished = "finished"
	RoomEventDeleted  = "deleted"
	RoomEventEvicted  = "evicted"
)

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// RoomSubject 房间 ID 可能来自客户端，去掉 nats 主题里的特殊字符
func RoomSubject(prefix, roomID, event string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + RoomSubjectToken + "." + subjectReplacer.Replace(roomID) + "." + event
}

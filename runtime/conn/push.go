package conn

import (
	"errors"
	"fmt"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/runtime/dto"
	"github.com/Arterning/national-chess/runtime/game"
)

// viewBuilder 按观察者座位生成消息体，seat 为 -1 表示观战者
type viewBuilder func(seat int, redact bool) any

func (w *Worker) send(con *LongConnection, t MessageType, payload any) error {
	buf, err := Encode(t, payload)
	if err != nil {
		return err
	}
	if err := con.SendMessage(buf); err != nil {
		return fmt.Errorf("发送 %s 给连接 %s 失败: %w", t, con.ConnID, err)
	}
	return nil
}

// replyError 错误只回复给发送方
func (w *Worker) replyError(con *LongConnection, err error) {
	if sendErr := w.send(con, Error, &ErrorResp{Message: errorMessage(err)}); sendErr != nil {
		log.Warn("客户端[%s] 回复错误失败: %v", con.ConnID, sendErr)
	}
}

func errorMessage(err error) string {
	var ge *game.GameError
	switch {
	case errors.As(err, &ge):
		return ge.Message
	case errors.Is(err, dto.ErrInvalidMessage), errors.Is(err, dto.ErrMessageUnmarshal):
		return "消息格式错误"
	case errors.Is(err, dto.ErrHandlerNotFound):
		return "不支持的消息类型"
	default:
		return "服务器内部错误"
	}
}

// broadcast 在房间锁释放后调用，members 是锁内收集的连接列表
// 不隐藏棋子时所有人共用一份编码结果，否则按座位各编码一次
func (w *Worker) broadcast(members []game.Member, t MessageType, excludeUserID string, build viewBuilder) {
	redact := w.redactHidden.Load()
	encoded := make(map[int][]byte, 4)
	for _, m := range members {
		if excludeUserID != "" && m.UserID == excludeUserID {
			continue
		}
		key := -1
		if redact {
			key = m.Seat
		}
		buf, ok := encoded[key]
		if !ok {
			var err error
			buf, err = Encode(t, build(key, redact))
			if err != nil {
				log.Error("广播 %s 编码失败: %v", t, err)
				return
			}
			encoded[key] = buf
		}
		con, ok := w.getClient(m.ConnID)
		if !ok {
			continue
		}
		if err := con.SendMessage(buf); err != nil {
			log.Warn("广播 %s 给用户 %s 失败: %v", t, m.UserID, err)
		}
	}
}

// broadcastRoomList 房间列表变化后推送给所有连接
func (w *Worker) broadcastRoomList() {
	buf, err := Encode(RoomListUpdate, &RoomListResp{Rooms: w.game.RoomManager.ListRooms()})
	if err != nil {
		log.Error("房间列表编码失败: %v", err)
		return
	}
	w.eachClient(func(con *LongConnection) {
		if err := con.SendMessage(buf); err != nil && !errors.Is(err, dto.ErrConnectionClosed) {
			log.Warn("推送房间列表给连接 %s 失败: %v", con.ConnID, err)
		}
	})
}

// onRoomEvent 处理不经过网关发起的房间变化，比如 Sweeper 踢人、回收房间和后台删除房间
// RoomManager 在释放锁之后同步调用
func (w *Worker) onRoomEvent(ev game.RoomEvent) {
	switch ev.Type {
	case game.EventPlayerEvicted:
		if ev.Leave == nil {
			return
		}
		if v, ok := w.userConns.Load(ev.UserID); ok {
			v.(*LongConnection).GetSession().ClearRoom(ev.RoomID)
		}
		log.Info("用户 %s 因不活跃被移出房间 %s", ev.UserID, ev.RoomID)
		w.afterLeave(ev.Leave)
	case game.EventRoomDeleted:
		w.eachClient(func(con *LongConnection) {
			con.GetSession().ClearRoom(ev.RoomID)
		})
		w.broadcastRoomList()
	}
}

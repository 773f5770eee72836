package conn

import (
	"context"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/runtime/game"
)

func (w *Worker) handleGetRoomList(con *LongConnection, _ []byte) error {
	return w.send(con, RoomList, &RoomListResp{Rooms: w.game.RoomManager.ListRooms()})
}

// handleJoinRoom 创建或加入房间
// 没有 roomId 也不创建时，按路由找回玩家上次所在的房间
func (w *Worker) handleJoinRoom(con *LongConnection, payload []byte) error {
	var req JoinRoomReq
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	session := con.GetSession()
	session.SetDisplayName(req.Username)
	userID, name := session.GetUserID(), session.GetDisplayName()
	rm := w.game.RoomManager

	roomID := req.RoomID
	if !req.CreateNew && roomID == "" {
		resolved, ok := w.game.ResolveRoom(context.Background(), userID)
		if !ok {
			return game.NewGameError(game.ErrValidation, "房间ID不能为空")
		}
		roomID = resolved
	}
	if cur := session.RoomID(); cur != "" && (req.CreateNew || cur != roomID) {
		if err := w.leaveRoom(con, cur); err != nil && !game.IsNotFound(err) {
			return err
		}
	}

	var (
		res *game.JoinResult
		err error
	)
	if req.CreateNew {
		res, err = rm.CreateRoom(req.RoomID, req.RoomName, userID, name, con.ConnID, game.RoomOptions{
			IsPrivate: req.IsPrivate,
			Password:  req.Password,
			Kind:      req.RoomType,
		})
	} else {
		res, err = rm.JoinRoom(roomID, userID, name, con.ConnID, req.Password, req.AsSpectator)
	}
	if err != nil {
		return err
	}

	session.SetRoomID(res.Room.ID)
	if res.Player != nil {
		w.game.RememberRoute(userID, res.Room.ID)
	}

	joined := JoinedMember{UserID: userID, Username: name, ConnID: con.ConnID, Spectator: res.Spectator != nil}
	w.broadcast(res.Audience, PlayerJoined, "", func(seat int, redact bool) any {
		return &PlayerJoinedResp{Player: joined, Room: res.Room.ForViewer(seat, redact)}
	})
	w.broadcastRoomList()
	return nil
}

func (w *Worker) handleLeaveRoom(con *LongConnection, payload []byte) error {
	var req LeaveRoomReq
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	roomID, err := roomOf(con, req.RoomID)
	if err != nil {
		return err
	}
	return w.leaveRoom(con, roomID)
}

func (w *Worker) leaveRoom(con *LongConnection, roomID string) error {
	session := con.GetSession()
	res, err := w.game.RoomManager.LeaveRoom(roomID, session.GetUserID())
	if err != nil {
		return err
	}
	session.ClearRoom(roomID)
	w.afterLeave(res)
	return nil
}

// disconnectRoom 连接断开，玩家已经换了新连接时忽略
func (w *Worker) disconnectRoom(con *LongConnection, roomID string) {
	session := con.GetSession()
	res, err := w.game.RoomManager.Disconnect(roomID, session.GetUserID(), con.ConnID)
	if err != nil {
		if !game.IsNotFound(err) {
			log.Warn("客户端[%s] 断线处理失败: %v", con.ConnID, err)
		}
		return
	}
	session.ClearRoom(roomID)
	if res.Ignored {
		return
	}
	w.afterLeave(res)
}

func (w *Worker) afterLeave(res *game.LeaveResult) {
	if !res.SeatKept {
		w.game.ForgetRoute(res.UserID)
	}
	if !res.Deleted && res.Room != nil {
		w.broadcast(res.Audience, PlayerLeft, res.UserID, func(seat int, redact bool) any {
			return &PlayerLeftResp{UserID: res.UserID, Room: res.Room.ForViewer(seat, redact)}
		})
	}
	// 房间被删除时由 EventRoomDeleted 推送房间列表
	if !res.Deleted {
		w.broadcastRoomList()
	}
}

// handlePlayerReady 最后一名玩家准备后同时广播 GAME_START
func (w *Worker) handlePlayerReady(con *LongConnection, payload []byte) error {
	var req PlayerReadyReq
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	roomID, err := roomOf(con, req.RoomID)
	if err != nil {
		return err
	}
	userID := con.GetSession().GetUserID()
	res, err := w.game.RoomManager.MarkReady(roomID, userID, req.Pieces)
	if err != nil {
		return err
	}

	w.broadcast(res.Audience, PlayerReady, "", func(seat int, redact bool) any {
		return &PlayerReadyResp{UserID: userID, Seat: res.Seat, Room: res.Room.ForViewer(seat, redact)}
	})
	if res.Started {
		w.broadcast(res.Audience, GameStart, "", func(seat int, redact bool) any {
			return &GameStartResp{GameState: res.Room.ForViewer(seat, redact).Game}
		})
		w.broadcastRoomList()
	}
	return nil
}

func (w *Worker) handleMakeMove(con *LongConnection, payload []byte) error {
	var req MakeMoveReq
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if req.PieceID == "" || req.To == nil {
		return game.NewGameError(game.ErrValidation, "缺少棋子或目标位置")
	}
	roomID, err := roomOf(con, req.RoomID)
	if err != nil {
		return err
	}
	userID := con.GetSession().GetUserID()
	res, err := w.game.RoomManager.ApplyMove(roomID, userID, req.PieceID, *req.To)
	if err != nil {
		return err
	}

	w.broadcast(res.Audience, MoveResult, "", func(seat int, redact bool) any {
		return &MoveResultResp{
			UserID:     userID,
			PieceID:    req.PieceID,
			From:       res.Record.From,
			To:         res.Record.To,
			MoveResult: res.Record.Result,
			GameState:  res.Room.ForViewer(seat, redact).Game,
		}
	})
	if res.Ended {
		w.broadcast(res.Audience, GameEnd, "", func(seat int, redact bool) any {
			return &GameEndResp{Winner: res.Winner, GameState: res.Room.ForViewer(seat, redact).Game}
		})
		w.broadcastRoomList()
	}
	return nil
}

// roomOf 请求里没有 roomId 时使用连接当前所在的房间
func roomOf(con *LongConnection, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if roomID := con.GetSession().RoomID(); roomID != "" {
		return roomID, nil
	}
	return "", game.NewGameError(game.ErrValidation, "房间ID不能为空")
}

package conn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Arterning/national-chess/runtime/dto"
	"github.com/Arterning/national-chess/runtime/game"
	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

type MessageType string

// 客户端 -> 服务端
const (
	GetRoomList MessageType = "GET_ROOM_LIST"
	JoinRoom    MessageType = "JOIN_ROOM"
	LeaveRoom   MessageType = "LEAVE_ROOM"
	PlayerReady MessageType = "PLAYER_READY"
	MakeMove    MessageType = "MAKE_MOVE"
)

// 服务端 -> 客户端，PLAYER_READY 两个方向共用
const (
	RoomList       MessageType = "ROOM_LIST"
	RoomListUpdate MessageType = "ROOM_LIST_UPDATE"
	PlayerJoined   MessageType = "PLAYER_JOINED"
	PlayerLeft     MessageType = "PLAYER_LEFT"
	GameStart      MessageType = "GAME_START"
	MoveResult     MessageType = "MOVE_RESULT"
	GameEnd        MessageType = "GAME_END"
	Error          MessageType = "ERROR"
)

// Envelope 所有消息的外层结构
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Encode 打包成一条文本帧
func Encode(t MessageType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dto.ErrMessageMarshal, t, err)
	}
	return json.Marshal(&Envelope{Type: t, Payload: body, Timestamp: time.Now().UnixMilli()})
}

// Decode 解析外层结构，只校验 type 是否存在
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrMessageUnmarshal, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: 缺少消息类型", dto.ErrInvalidMessage)
	}
	return &env, nil
}

// decodePayload payload 可以为空，此时 v 保持零值
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", dto.ErrInvalidMessage, err)
	}
	return nil
}

type JoinRoomReq struct {
	RoomID      string        `json:"roomId"`
	RoomName    string        `json:"roomName"`
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	CreateNew   bool          `json:"createNew"`
	RoomType    junqi.Variant `json:"roomType"`
	IsPrivate   bool          `json:"isPrivate"`
	AsSpectator bool          `json:"asSpectator"`
}

type LeaveRoomReq struct {
	RoomID string `json:"roomId"`
}

type PlayerReadyReq struct {
	RoomID string            `json:"roomId"`
	Pieces []junqi.Placement `json:"pieces"`
}

type MakeMoveReq struct {
	RoomID  string          `json:"roomId"`
	PieceID string          `json:"pieceId"`
	To      *junqi.Position `json:"to"`
}

type RoomListResp struct {
	Rooms []game.RoomSummary `json:"rooms"`
}

type JoinedMember struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	ConnID    string `json:"connId"`
	Spectator bool   `json:"isSpectator"`
}

type PlayerJoinedResp struct {
	Player JoinedMember   `json:"player"`
	Room   *game.RoomView `json:"room"`
}

type PlayerLeftResp struct {
	UserID string         `json:"userId"`
	Room   *game.RoomView `json:"room"`
}

type PlayerReadyResp struct {
	UserID string         `json:"userId"`
	Seat   int            `json:"position"`
	Room   *game.RoomView `json:"room"`
}

type GameStartResp struct {
	GameState *junqi.GameState `json:"gameState"`
}

type MoveResultResp struct {
	UserID     string              `json:"userId"`
	PieceID    string              `json:"pieceId"`
	From       junqi.Position      `json:"from"`
	To         junqi.Position      `json:"to"`
	MoveResult *junqi.BattleResult `json:"moveResult"`
	GameState  *junqi.GameState    `json:"gameState"`
}

type GameEndResp struct {
	Winner    *junqi.Winner    `json:"winner"`
	GameState *junqi.GameState `json:"gameState"`
}

type ErrorResp struct {
	Message string `json:"message"`
}

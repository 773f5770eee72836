package conn

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Arterning/national-chess/runtime/dto"
	"github.com/Arterning/national-chess/runtime/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	buf, err := Encode(PlayerLeft, &PlayerLeftResp{UserID: "u1"})
	require.NoError(t, err)

	env, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, PlayerLeft, env.Type)
	assert.Positive(t, env.Timestamp)
	assert.JSONEq(t, `{"userId":"u1","room":null}`, string(env.Payload))

	_, err = Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, dto.ErrInvalidMessage)
	_, err = Decode([]byte(`{`))
	assert.ErrorIs(t, err, dto.ErrMessageUnmarshal)

	var req LeaveRoomReq
	assert.NoError(t, decodePayload(nil, &req))
	assert.NoError(t, decodePayload([]byte("null"), &req))
	assert.ErrorIs(t, decodePayload([]byte(`[1]`), &req), dto.ErrInvalidMessage)
}

func TestExtractUserIDFromTestPath(t *testing.T) {
	w := &Worker{allowTestPath: true}
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"/ws/test=alice", "alice", true},
		{"/ws/test=", "", false},
		{"/ws", "", false},
		{"/", "", false},
		{"/ws/other/test=bob/", "bob", true},
	}
	for _, tc := range cases {
		got, ok := w.extractUserIDFromTestPath(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}

	w.allowTestPath = false
	_, ok := w.extractUserIDFromTestPath("/ws/test=alice")
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "房间已满", errorMessage(game.NewGameError(game.ErrValidation, "房间已满")))
	assert.Equal(t, "房间已满", errorMessage(fmt.Errorf("wrap: %w", game.NewGameError(game.ErrValidation, "房间已满"))))
	assert.Equal(t, "消息格式错误", errorMessage(fmt.Errorf("%w: x", dto.ErrInvalidMessage)))
	assert.Equal(t, "不支持的消息类型", errorMessage(dto.ErrHandlerNotFound))
	assert.Equal(t, "服务器内部错误", errorMessage(errors.New("boom")))
}

func TestSession(t *testing.T) {
	s := NewSession("c1", "u1", "", "test-path")
	assert.Equal(t, "u1", s.GetDisplayName())
	s.SetDisplayName("")
	assert.Equal(t, "u1", s.GetDisplayName())
	s.SetDisplayName("玩家")
	assert.Equal(t, "玩家", s.GetDisplayName())

	s.SetRoomID("r1")
	s.ClearRoom("r2")
	assert.Equal(t, "r1", s.RoomID())
	s.ClearRoom("r1")
	assert.Empty(t, s.RoomID())
}

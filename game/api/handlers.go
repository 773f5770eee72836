package api

import (
	"time"

	"github.com/Arterning/national-chess/common/http"
	"github.com/Arterning/national-chess/runtime/game"
)

func PingHandler(c *http.Context) error {
	c.Success(map[string]any{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"service":   "game",
	})
	return nil
}

// HealthHandler 最近一次负载采样和当前连接数
func (h *Handler) HealthHandler(c *http.Context) error {
	games, players := h.game.RoomManager.GetStats()
	c.Success(map[string]any{
		"healthy":     true,
		"node":        h.game.NodeID,
		"rooms":       games,
		"players":     players,
		"connections": h.ws.ConnectionCount(),
		"load":        h.game.Monitor.Latest(),
		"timestamp":   time.Now().Unix(),
	})
	return nil
}

// WebsocketHandler 鉴权失败时 ServeWS 自己写回状态码
func (h *Handler) WebsocketHandler(c *http.Context) error {
	h.ws.ServeWS(c.Writer(), c.Request())
	return nil
}

func (h *Handler) ListRoomsHandler(c *http.Context) error {
	c.Success(h.game.RoomManager.ListRooms())
	return nil
}

// GetRoomHandler 以观战者视角返回房间快照，私密房间与房间列表一致不对外暴露
func (h *Handler) GetRoomHandler(c *http.Context) error {
	view, err := h.game.RoomManager.RoomView(c.GetParam("id"))
	if err != nil {
		if game.IsNotFound(err) {
			c.NotFound("房间不存在")
			return nil
		}
		return err
	}
	if view.IsPrivate {
		c.NotFound("房间不存在")
		return nil
	}
	c.Success(view.ForViewer(-1, h.ws.RedactHidden()))
	return nil
}

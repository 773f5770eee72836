package api

import (
	"github.com/Arterning/national-chess/common/http"
	"github.com/Arterning/national-chess/runtime/conn"
	"github.com/Arterning/national-chess/runtime/game"
)

// Handler 对外 HTTP 接口，房间数据只读
type Handler struct {
	game *game.Worker
	ws   *conn.Worker
}

func NewHandler(gameWorker *game.Worker, ws *conn.Worker) *Handler {
	return &Handler{game: gameWorker, ws: ws}
}

// RegisterRoutes websocket 入口、房间查询和健康检查
func RegisterRoutes(server *http.HttpServer, h *Handler) {
	server.GET("/ping", PingHandler)
	server.GET("/health", h.HealthHandler)

	server.GET("/ws", h.WebsocketHandler)
	server.GET("/ws/:path", h.WebsocketHandler)

	v1 := server.Group("/api/v1")
	{
		v1.GET("/rooms", h.ListRoomsHandler)
		v1.GET("/rooms/:id", h.GetRoomHandler)
	}
}

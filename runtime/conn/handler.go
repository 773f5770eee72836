package conn

// 玩家消息路由
func (w *Worker) injectDefaultHandlers() {
	w.handlers[GetRoomList] = w.handleGetRoomList
	w.handlers[JoinRoom] = w.handleJoinRoom
	w.handlers[LeaveRoom] = w.handleLeaveRoom
	w.handlers[PlayerReady] = w.handlePlayerReady
	w.handlers[MakeMove] = w.handleMakeMove
}

// RegisterHandler 注册或覆盖消息处理器，需要在 Start 之前调用
func (w *Worker) RegisterHandler(t MessageType, h HandlerFunc) {
	w.handlers[t] = h
}

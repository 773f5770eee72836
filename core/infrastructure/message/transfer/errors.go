package transfer

import "errors"

// 存储旁路
var (
	ErrMongodb = errors.New("mongodb error happen")
	ErrRedis   = errors.New("redis error happen")
)

// 事件发布
var (
	ErrNotConnected = errors.New("nats not connected")
	ErrSendChanFull = errors.New("room event queue full")
)

package dto

import "errors"

// 连接相关错误
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendChanFull     = errors.New("send channel full")
	ErrTooManyConns     = errors.New("too many connections")
	ErrRateLimited      = errors.New("connection rate limited")
)

// 鉴权相关错误
var (
	ErrMissingToken = errors.New("missing token")
	ErrNoJwtSecret  = errors.New("jwt secret not configured")
)

// 消息相关错误
var (
	ErrHandlerNotFound  = errors.New("handler not found")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrMessageMarshal   = errors.New("message marshal error")
	ErrMessageUnmarshal = errors.New("message unmarshal error")
)

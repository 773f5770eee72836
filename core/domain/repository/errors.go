package repository

import "errors"

var (
	// 房间路由相关错误
	ErrRouterNotFound = errors.New("room router not found")

	// 对局存档相关错误
	ErrMatchRecordNotFound = errors.New("match record not found")
)

package service

import "errors"

var ErrRouteNotFound = errors.New("用户没有房间路由")

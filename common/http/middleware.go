package http

import (
	"time"

	"github.com/Arterning/national-chess/common/log"
)

// CorsMiddleware 允许浏览器跨域访问房间接口
func CorsMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		if c.GetHeader("Origin") != "" {
			c.SetHeader("Access-Control-Allow-Origin", "*")
			c.SetHeader("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.SetHeader("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}
		if c.Method() == "OPTIONS" {
			c.AbortWithStatus(204)
		}
		return nil
	}
}

// LoggerMiddleware 请求结束后打 debug 日志
func LoggerMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		start := time.Now()
		method, path := c.Method(), c.Path()
		c.ginCtx.Next()
		log.Debug("HTTP %s %s %d from %s in %v", method, path, c.ginCtx.Writer.Status(), c.ClientIP(), time.Since(start))
		return nil
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context 包装 gin.Context，路由处理只依赖这里暴露的方法
type Context struct {
	ginCtx *gin.Context
}

func newContext(c *gin.Context) *Context {
	return &Context{ginCtx: c}
}

// GetParam 路径参数
func (c *Context) GetParam(key string) string {
	return c.ginCtx.Param(key)
}

func (c *Context) GetQuery(key string) string {
	return c.ginCtx.Query(key)
}

func (c *Context) GetHeader(key string) string {
	return c.ginCtx.GetHeader(key)
}

func (c *Context) SetHeader(key, value string) {
	c.ginCtx.Header(key, value)
}

func (c *Context) JSON(code int, obj any) {
	c.ginCtx.JSON(code, obj)
}

func (c *Context) ClientIP() string {
	return c.ginCtx.ClientIP()
}

func (c *Context) Method() string {
	return c.ginCtx.Request.Method
}

func (c *Context) Path() string {
	return c.ginCtx.Request.URL.Path
}

func (c *Context) AbortWithStatus(code int) {
	c.ginCtx.AbortWithStatus(code)
}

// Request、Writer 给 websocket 升级使用
func (c *Context) Request() *http.Request {
	return c.ginCtx.Request
}

func (c *Context) Writer() http.ResponseWriter {
	return c.ginCtx.Writer
}

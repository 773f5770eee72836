package http

import "net/http"

// Response 统一响应结构，code 为 0 表示成功
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	CodeSuccess     = 0
	CodeNotFound    = 10004
	CodeServerError = 10005
)

func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, &Response{Code: CodeSuccess, Message: "success", Data: data})
}

func (c *Context) NotFound(message string) {
	c.fail(http.StatusNotFound, CodeNotFound, message, "not found")
}

func (c *Context) InternalServerError(message string) {
	c.fail(http.StatusInternalServerError, CodeServerError, message, "internal server error")
}

func (c *Context) fail(status, code int, message, fallback string) {
	if message == "" {
		message = fallback
	}
	c.JSON(status, &Response{Code: code, Message: message})
}

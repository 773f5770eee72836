package metrics

import (
	"net/http"
	"time"

	"github.com/arl/statsviz"
)

// Serve 启动 statsviz 监控页面，阻塞
// 访问 http://<addr>/debug/statsviz/
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

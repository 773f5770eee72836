package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arterning/national-chess/common/config"
	"github.com/Arterning/national-chess/common/http"
	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/core/container"
	"github.com/Arterning/national-chess/game/api"
)

func Run(ctx context.Context) error {
	cfg := config.GameNodeConfig
	gameContainer, err := container.NewGameContainer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := gameContainer.Close(); err != nil {
			log.Error("关闭 game 容器失败: %v", err)
		}
	}()

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	gameContainer.GameWorker.Start(workerCtx)
	gameContainer.WsWorker.Start()

	// 只有日志级别和规则开关支持热更新
	config.OnChange(func(next config.GameConfiguration) {
		log.SetLevel(next.LogConf.Level)
		gameContainer.GameWorker.RoomManager.SetLayoutPolicy(container.LayoutPolicyOf(next.RulesConf))
		gameContainer.WsWorker.SetRedactHidden(next.RulesConf.RedactHidden)
		log.Info("配置已更新: 日志级别 %s, 规则 %+v", next.LogConf.Level, next.RulesConf)
	})
	config.Watch()

	server := http.NewHttpServer(
		http.WithPort(cfg.HttpPort),
		http.WithMode(cfg.LogConf.Level),
	)
	server.Use(http.CorsMiddleware(), http.LoggerMiddleware())
	api.RegisterRoutes(server, api.NewHandler(gameContainer.GameWorker, gameContainer.WsWorker))

	serveErr := make(chan error, 1)
	go func() {
		log.Info("启动 HTTP 服务器，端口: %d", cfg.HttpPort)
		serveErr <- server.Start()
	}()

	stop := func() {
		log.Info("正在关闭 game 服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP 服务器关闭失败: %v", err)
		}
		done := make(chan struct{})
		go func() {
			if err := gameContainer.Close(); err != nil {
				log.Warn("关闭 game 容器失败: %v", err)
			}
			close(done)
		}()

		select {
		case <-done:
			log.Info("game 服务已关闭")
		case <-shutdownCtx.Done():
			log.Warn("关闭 game 服务超时（5秒），defer 会确保资源最终被释放")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(c)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case err := <-serveErr:
			if err != nil {
				log.Error("HTTP 服务器异常退出: %v", err)
				stop()
				return err
			}
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}

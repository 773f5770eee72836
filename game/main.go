package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Arterning/national-chess/common/config"
	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/common/metrics"
	"github.com/Arterning/national-chess/game/app"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "game",
	Short: "军棋对战服务",
	Long:  `军棋对战服务，提供房间管理和 websocket 实时对局`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Load(configFile); err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		log.InitLog(config.GameNodeConfig.ID, config.GameNodeConfig.LogConf.Level)
		log.Info("配置文件: %+v", config.GameNodeConfig)

		if port := config.GameNodeConfig.MetricPort; port > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", port)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", port)); err != nil {
					log.Error("监控服务退出: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background()); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "配置文件路径")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}

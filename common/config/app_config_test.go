package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写配置文件失败: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NODE_ID", "")
	path := writeConfig(t, "id: game-test\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := GameNodeConfig
	if cfg.ID != "game-test" || cfg.ServerType != "game" {
		t.Fatalf("基础配置错误: %+v", cfg.BaseConfig)
	}
	if cfg.HttpPort != 8080 {
		t.Fatalf("httpPort 默认值错误: %d", cfg.HttpPort)
	}
	if cfg.RoomConf.InactivityTimeout != 2*time.Hour || cfg.RoomConf.SweepInterval != time.Hour {
		t.Fatalf("超时默认值错误: %+v", cfg.RoomConf)
	}
	if cfg.RulesConf.RedactHidden || cfg.RulesConf.RequireFlagInHeadquarters {
		t.Fatalf("规则默认应全部关闭: %+v", cfg.RulesConf)
	}
	if cfg.RedisConf.Enabled() {
		t.Fatalf("未配置 redis 时不应启用")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NODE_ID", "game-env")
	path := writeConfig(t, `
id: game-file
httpPort: 9000
log:
  level: debug
room:
  inactivityTimeout: 30m
  sweepInterval: 1m
rules:
  requireFlagInHeadquarters: true
  redactHidden: true
database:
  redis:
    addr: 127.0.0.1:6379
`)
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := GameNodeConfig
	if cfg.ID != "game-env" {
		t.Fatalf("NODE_ID 应覆盖配置文件, got %s", cfg.ID)
	}
	if cfg.HttpPort != 9000 || cfg.LogConf.Level != "debug" {
		t.Fatalf("配置读取错误: %+v", cfg)
	}
	if cfg.RoomConf.InactivityTimeout != 30*time.Minute || cfg.RoomConf.SweepInterval != time.Minute {
		t.Fatalf("时长解析错误: %+v", cfg.RoomConf)
	}
	if !cfg.RulesConf.RequireFlagInHeadquarters || !cfg.RulesConf.RedactHidden || cfg.RulesConf.ForbidCampPlacement {
		t.Fatalf("规则解析错误: %+v", cfg.RulesConf)
	}
	if !cfg.RedisConf.Enabled() {
		t.Fatalf("配置了 redis 地址应启用")
	}
}

func TestLoadRejectsUnknownServerType(t *testing.T) {
	path := writeConfig(t, "serverType: gate\n")
	if err := Load(path); err == nil {
		t.Fatalf("非 game 类型应报错")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("文件不存在应报错")
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GameNodeConfig 当前进程的配置，Load 之后可用
var GameNodeConfig GameConfiguration

type BaseConfig struct {
	ID         string `mapstructure:"id"`
	ServerType string `mapstructure:"serverType"`
	MetricPort int    `mapstructure:"metricPort"`
}

type GameConfiguration struct {
	BaseConfig   `mapstructure:",squash"`
	HttpPort     int `mapstructure:"httpPort"`
	DatabaseConf `mapstructure:"database"`
	JwtConf      `mapstructure:"jwt"`
	LogConf      `mapstructure:"log"`
	NatsConfig   `mapstructure:"nats"`
	RoomConf     `mapstructure:"room"`
	RulesConf    `mapstructure:"rules"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type JwtConf struct {
	Secret        string `mapstructure:"secret"`
	Expire        int    `mapstructure:"expire"`
	AllowTestPath bool   `mapstructure:"allowTestPath"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

// MongoConf Url 为空时不启用对局存档
type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

// RedisConf Addr、Host、ClusterAddrs 都为空时不启用路由缓存
type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

func (c RedisConf) Enabled() bool {
	return c.Addr != "" || len(c.ClusterAddrs) > 0 || (c.Host != "" && c.Port > 0)
}

// NatsConfig URL 为空时不发布房间事件
type NatsConfig struct {
	URL     string `json:"url" mapstructure:"url"`
	Subject string `json:"subject" mapstructure:"subject"`
}

type RoomConf struct {
	InactivityTimeout time.Duration `mapstructure:"inactivityTimeout"`
	SweepInterval     time.Duration `mapstructure:"sweepInterval"`
	MonitorInterval   time.Duration `mapstructure:"monitorInterval"`
	MaxConnections    int           `mapstructure:"maxConnections"`
	ConnectRate       int           `mapstructure:"connectRate"`
	ConnectBurst      int           `mapstructure:"connectBurst"`
}

// RulesConf 布阵约束和信息隐藏，默认全部关闭
type RulesConf struct {
	RequireFlagInHeadquarters  bool `mapstructure:"requireFlagInHeadquarters"`
	RequireLandminesInBackRows bool `mapstructure:"requireLandminesInBackRows"`
	ForbidCampPlacement        bool `mapstructure:"forbidCampPlacement"`
	RedactHidden               bool `mapstructure:"redactHidden"`
}

var (
	watchMu  sync.Mutex
	current  *viper.Viper
	watchers []func(GameConfiguration)
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("serverType", "game")
	v.SetDefault("httpPort", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.expire", 7*24*3600)
	v.SetDefault("nats.subject", "junqi")
	v.SetDefault("room.inactivityTimeout", 2*time.Hour)
	v.SetDefault("room.sweepInterval", time.Hour)
	v.SetDefault("room.monitorInterval", 10*time.Second)
	v.SetDefault("room.maxConnections", 10000)
	v.SetDefault("room.connectRate", 100)
	v.SetDefault("room.connectBurst", 2)
}

// Load 读取配置文件，环境变量优先（database.mongo.url -> DATABASE_MONGO_URL）
// 设置了 NODE_ID 时覆盖配置中的 id
func Load(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件出错: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return err
	}
	GameNodeConfig = cfg

	watchMu.Lock()
	current = v
	watchMu.Unlock()
	return nil
}

func decode(v *viper.Viper) (GameConfiguration, error) {
	var cfg GameConfiguration
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("解析配置文件出错: %w", err)
	}
	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.ID = nodeID
	}
	if cfg.ID == "" {
		cfg.ID = "game-1"
	}
	if cfg.ServerType != "game" {
		return cfg, fmt.Errorf("unknown server type: %s", cfg.ServerType)
	}
	return cfg, nil
}

// OnChange 配置文件变化时回调，只有日志级别和规则相关的配置会在运行时生效
func OnChange(fn func(GameConfiguration)) {
	watchMu.Lock()
	defer watchMu.Unlock()
	watchers = append(watchers, fn)
}

// Watch 开始监听配置文件
func Watch() {
	watchMu.Lock()
	v := current
	watchMu.Unlock()
	if v == nil {
		return
	}
	v.OnConfigChange(func(in fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			return
		}
		watchMu.Lock()
		fns := append([]func(GameConfiguration){}, watchers...)
		watchMu.Unlock()
		for _, fn := range fns {
			fn(cfg)
		}
	})
	v.WatchConfig()
}

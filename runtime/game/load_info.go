package game

import "time"

// LoadInfo 负载信息
type LoadInfo struct {
	GameCount   int       `json:"rooms"`    // 当前房间数
	PlayerCount int       `json:"players"`  // 当前玩家数
	CPUUsage    float64   `json:"cpu"`      // CPU 使用率（0-100）
	MemUsage    float64   `json:"mem"`      // 内存使用率（0-100）
	Goroutines  int       `json:"goroutines"`
	SampledAt   time.Time `json:"sampledAt"`
}

// CalculateLoad 计算综合负载评分
// 权重：CPU 30%、内存 20%、房间数 25%、玩家数 25%
// 返回值越小表示负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	// 房间数和玩家数按 100 归一化
	normalizedGameCount := float64(li.GameCount) / 100.0
	if normalizedGameCount > 1.0 {
		normalizedGameCount = 1.0
	}

	normalizedPlayerCount := float64(li.PlayerCount) / 100.0
	if normalizedPlayerCount > 1.0 {
		normalizedPlayerCount = 1.0
	}

	return li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedGameCount*100*0.25 + normalizedPlayerCount*100*0.25
}

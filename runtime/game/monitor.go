package game

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/Arterning/national-chess/common/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Monitor 监控器
// 定期采样 CPU、内存和房间负载，记录日志并保存最近一次结果
type Monitor struct {
	roomManager    *RoomManager
	updateInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once

	mu     sync.RWMutex
	latest LoadInfo
}

// NewMonitor 创建监控器
// updateInterval: 更新间隔（建议 5-10 秒）
func NewMonitor(roomManager *RoomManager, updateInterval time.Duration) *Monitor {
	if updateInterval <= 0 {
		updateInterval = 10 * time.Second
	}
	return &Monitor{
		roomManager:    roomManager,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start 启动监控器，阻塞直到 ctx 取消或 Stop
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	m.reportLoad()

	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-m.stopCh:
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-ticker.C:
			m.reportLoad()
		}
	}
}

// Stop 停止监控器
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Latest 最近一次采样结果
func (m *Monitor) Latest() LoadInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) reportLoad() {
	info := m.collectLoadInfo()
	m.mu.Lock()
	m.latest = *info
	m.mu.Unlock()

	log.Debug("Monitor 负载: Load=%.2f, Rooms=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%, Goroutines=%d",
		info.CalculateLoad(), info.GameCount, info.PlayerCount, info.CPUUsage, info.MemUsage, info.Goroutines)
}

func (m *Monitor) collectLoadInfo() *LoadInfo {
	gameCount, playerCount := m.roomManager.GetStats()
	return &LoadInfo{
		GameCount:   gameCount,
		PlayerCount: playerCount,
		CPUUsage:    getCPUUsage(),
		MemUsage:    getMemoryUsage(),
		Goroutines:  runtime.NumGoroutine(),
		SampledAt:   time.Now(),
	}
}

// getCPUUsage 自上次调用以来的系统 CPU 使用率
func getCPUUsage() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		if err != nil {
			log.Warn("Monitor 获取 CPU 使用率失败: %v", err)
		}
		return 0
	}
	return clampPercent(percents[0])
}

// getMemoryUsage 系统内存使用率
func getMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("Monitor 获取内存使用率失败: %v", err)
		return 0
	}
	return clampPercent(vm.UsedPercent)
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

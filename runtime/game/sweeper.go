package game

import (
	"context"
	"sync"
	"time"

	"github.com/Arterning/national-chess/common/log"
)

// Sweeper 定期清理不活跃的玩家和房间
//   - 等待中的房间：踢出未准备且超时未活跃的玩家
//   - 已结束的房间：踢出离线超时的玩家
//   - 对局中的房间：不踢人；所有玩家都离线超时后整个房间回收
type Sweeper struct {
	rm       *RoomManager
	interval time.Duration

	reapMu sync.RWMutex
	reap   func(roomID string)

	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// SweepReport 一次检查的结果
type SweepReport struct {
	Evicted []*LeaveResult
	Reaped  []string
}

func NewSweeper(rm *RoomManager, interval time.Duration) *Sweeper {
	s := &Sweeper{
		rm:       rm,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	s.reap = func(roomID string) {
		if err := rm.DeleteRoom(roomID); err != nil {
			log.Warn("Sweeper 回收房间失败: %v", err)
		}
	}
	return s
}

// SetReaper 替换回收房间的方式，Worker 用它把删除请求放进自己的队列
func (s *Sweeper) SetReaper(fn func(roomID string)) {
	s.reapMu.Lock()
	defer s.reapMu.Unlock()
	s.reap = fn
}

// Start 启动定时检查，ctx 取消或 Stop 后退出
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		interval := s.interval
		if interval <= 0 {
			interval = DefaultSweepInterval
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.stopCh:
					return
				case <-ticker.C:
					s.Sweep(s.rm.now())
				}
			}
		}()
		log.Info("Sweeper 已启动，间隔: %s，超时: %s", interval, s.rm.InactivityTimeout())
	})
}

// Stop 停止定时检查并等待正在进行的检查结束
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Sweep 执行一次检查，每个房间在自己的锁内处理
func (s *Sweeper) Sweep(now time.Time) SweepReport {
	var report SweepReport
	rm := s.rm
	timeout := rm.InactivityTimeout()

	for _, room := range rm.GetAllRooms() {
		var evicted []*LeaveResult
		abandoned := false
		err := rm.withRoom("Sweep", room.ID, func(r *Room) error {
			switch r.Status {
			case RoomStatusPlaying:
				abandoned = r.abandoned(now, timeout)
				return nil
			case RoomStatusWaiting, RoomStatusFinished:
			default:
				return nil
			}
			candidates := append([]*PlayerInfo(nil), r.Players...)
			for _, p := range candidates {
				if now.Sub(p.LastActiveAt) <= timeout {
					continue
				}
				if r.Status == RoomStatusWaiting && p.Ready {
					continue
				}
				if r.Status == RoomStatusFinished && p.Online {
					continue
				}
				res, _, err := rm.leaveLocked(r, p.UserID, "")
				if err != nil {
					return err
				}
				log.Info("Sweeper 房间 %s 踢出不活跃玩家 %s", r.ID, p.UserID)
				evicted = append(evicted, res)
			}
			return nil
		})
		if err != nil {
			if !IsNotFound(err) {
				log.Warn("Sweeper 检查房间 %s 失败: %v", room.ID, err)
			}
			continue
		}

		for _, res := range evicted {
			rm.finishLeave(res)
			rm.emit(RoomEvent{Type: EventPlayerEvicted, RoomID: res.RoomID, UserID: res.UserID, Leave: res, At: now})
		}
		report.Evicted = append(report.Evicted, evicted...)

		if abandoned {
			log.Info("Sweeper 房间 %s 所有玩家离线超时，回收房间", room.ID)
			s.reapMu.RLock()
			reap := s.reap
			s.reapMu.RUnlock()
			reap(room.ID)
			report.Reaped = append(report.Reaped, room.ID)
		}
	}
	return report
}

package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Arterning/national-chess/common/log"
	svc "github.com/Arterning/national-chess/runtime/game/application/service"
)

/*
	1.持有 RoomManager，启动超时检查和负载监控
	2.房间事件转发到旁路：nats 事件、对局存档、路由提示
	3.回收房间的请求排队串行执行
*/

const sideChannelTimeout = 3 * time.Second

type Worker struct {
	RoomManager *RoomManager
	Monitor     *Monitor
	GameService svc.GameService // 由容器注入，可以为空
	NodeID      string

	destroyRoomCh chan string
	destroyMu     sync.Mutex
	destroyClosed bool
	destroyDone   chan struct{}

	tasks     sync.WaitGroup
	closeOnce sync.Once
}

// NewWorker 创建 Worker，opts 透传给 RoomManager
func NewWorker(nodeID string, monitorInterval time.Duration, opts ...Option) *Worker {
	roomManager := NewRoomManager(opts...)
	worker := &Worker{
		RoomManager:   roomManager,
		Monitor:       NewMonitor(roomManager, monitorInterval),
		NodeID:        nodeID,
		destroyRoomCh: make(chan string, 128),
		destroyDone:   make(chan struct{}),
	}
	roomManager.Sweeper().SetReaper(worker.RequestDestroyRoom)
	roomManager.AddListener(worker.onRoomEvent)

	go worker.destroyRoomLoop()
	return worker
}

// SetGameService 设置 GameService（由容器注入）
func (w *Worker) SetGameService(gameService svc.GameService) {
	w.GameService = gameService
}

// Start 启动超时检查和负载监控，ctx 取消后停止
func (w *Worker) Start(ctx context.Context) {
	w.RoomManager.StartSweeper(ctx)
	go w.Monitor.Start(ctx)
	log.Info("Game Worker[%s] 启动成功", w.NodeID)
}

func (w *Worker) destroyRoomLoop() {
	defer close(w.destroyDone)
	for roomID := range w.destroyRoomCh {
		if roomID == "" {
			continue
		}
		view, err := w.RoomManager.RoomView(roomID)
		if err != nil {
			continue
		}
		if err := w.RoomManager.DeleteRoom(roomID); err != nil {
			log.Warn("Worker destroyRoomLoop 删除房间失败: %v", err)
			continue
		}
		if view.Status == RoomStatusPlaying && view.Game != nil {
			w.recordMatch(view, false)
		}
	}
}

// RequestDestroyRoom 异步回收房间
func (w *Worker) RequestDestroyRoom(roomID string) {
	if roomID == "" {
		return
	}

	w.destroyMu.Lock()
	defer w.destroyMu.Unlock()
	if w.destroyClosed {
		return
	}
	select {
	case w.destroyRoomCh <- roomID:
	default:
		log.Warn("Worker RequestDestroyRoom 队列已满, roomID=%s", roomID)
	}
}

// RememberRoute 记录玩家所在房间，断线后换连接也能找回
func (w *Worker) RememberRoute(userID, roomID string) {
	w.runSide("SaveRoute", func(ctx context.Context, gs svc.GameService) error {
		return gs.SaveRoute(ctx, userID, roomID)
	})
}

// ForgetRoute 玩家离开房间后清理路由
func (w *Worker) ForgetRoute(userID string) {
	w.runSide("RemoveRoute", func(ctx context.Context, gs svc.GameService) error {
		return gs.RemoveRoute(ctx, userID)
	})
}

// ResolveRoom 找回玩家所在的房间，先查内存再查路由缓存
func (w *Worker) ResolveRoom(ctx context.Context, userID string) (string, bool) {
	if roomID, ok := w.RoomManager.GetPlayerRoom(userID); ok {
		return roomID, true
	}
	if w.GameService == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, sideChannelTimeout)
	defer cancel()
	roomID, err := w.GameService.LookupRoute(ctx, userID)
	if err != nil {
		if !errors.Is(err, svc.ErrRouteNotFound) {
			log.Warn("Worker 查询玩家 %s 路由失败: %v", userID, err)
		}
		return "", false
	}
	if _, ok := w.RoomManager.GetRoom(roomID); !ok {
		w.ForgetRoute(userID)
		return "", false
	}
	return roomID, true
}

// onRoomEvent 在 RoomManager 释放锁后同步调用，旁路操作全部异步
func (w *Worker) onRoomEvent(ev RoomEvent) {
	req := &svc.RoomEventReq{
		RoomID: ev.RoomID,
		Event:  string(ev.Type),
		UserID: ev.UserID,
		At:     ev.At,
	}
	if ev.Room != nil {
		req.Variant = string(ev.Room.Kind)
		req.Status = string(ev.Room.Status)
		for _, p := range ev.Room.Players {
			req.Players = append(req.Players, p.UserID)
		}
		if g := ev.Room.Game; g != nil && g.Winner != nil {
			team := g.Winner.Team
			req.WinnerTeam = &team
			req.WinnerSeats = append([]int(nil), g.Winner.Seats...)
		}
	}
	w.runSide("PublishRoomEvent", func(ctx context.Context, gs svc.GameService) error {
		return gs.PublishRoomEvent(ctx, req)
	})

	switch ev.Type {
	case EventGameFinished:
		if ev.Room != nil && ev.Room.Game != nil {
			w.recordMatch(ev.Room, true)
		}
	case EventPlayerEvicted:
		if ev.Leave != nil && !ev.Leave.SeatKept {
			w.ForgetRoute(ev.UserID)
		}
	}
}

func (w *Worker) recordMatch(view *RoomView, finished bool) {
	g := view.Game
	req := &svc.RecordMatchReq{
		RoomID:    view.ID,
		Variant:   string(view.Kind),
		Finished:  finished && g.Winner != nil,
		MoveCount: len(g.History),
		StartedAt: time.UnixMilli(g.StartedAt),
		EndedAt:   w.RoomManager.now(),
	}
	if g.EndedAt > 0 {
		req.EndedAt = time.UnixMilli(g.EndedAt)
	}
	for _, p := range g.Players {
		if p == nil {
			continue
		}
		req.Players = append(req.Players, svc.MatchPlayer{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Seat:        p.Seat,
			Team:        p.Team,
			Alive:       p.Alive,
		})
	}
	if g.Winner != nil {
		req.WinnerTeam = g.Winner.Team
		req.WinnerSeats = append([]int(nil), g.Winner.Seats...)
	}
	w.runSide("RecordMatch", func(ctx context.Context, gs svc.GameService) error {
		return gs.RecordMatch(ctx, req)
	})
}

// runSide 异步执行旁路操作，失败只记录日志
func (w *Worker) runSide(name string, fn func(ctx context.Context, gs svc.GameService) error) {
	gs := w.GameService
	if gs == nil {
		return
	}
	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideChannelTimeout)
		defer cancel()
		if err := fn(ctx, gs); err != nil {
			log.Warn("Worker %s 失败: %v", name, err)
		}
	}()
}

// Close 关闭 Worker，等待进行中的旁路操作结束
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.destroyMu.Lock()
		w.destroyClosed = true
		close(w.destroyRoomCh)
		w.destroyMu.Unlock()
		<-w.destroyDone

		if w.Monitor != nil {
			w.Monitor.Stop()
		}
		w.RoomManager.Close()
		w.tasks.Wait()
		log.Info("Game Worker[%s] 已关闭", w.NodeID)
	})
}

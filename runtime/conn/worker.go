package conn

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arterning/national-chess/common/jwts"
	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/common/utils"
	"github.com/Arterning/national-chess/runtime/dto"
	"github.com/Arterning/national-chess/runtime/game"
	"github.com/gorilla/websocket"
)

/*
长连接网关职责：
 1. 连接事件：鉴权、限流，处理玩家长连接的生命周期、读写事件
 2. 消息分发：按连接哈希到固定的处理协程，同一连接的消息按顺序处理
 3. 房间逻辑：调用 RoomManager，锁释放后把结果广播给房间内的连接
 4. 断线：连接断开等同于离开房间，对局中保留座位等待重连
*/

type CheckOriginHandler func(r *http.Request) bool

type HandlerFunc func(con *LongConnection, payload []byte) error

type ClientBucket struct {
	sync.RWMutex
	clients map[string]*LongConnection
}

func NewClientBucket() *ClientBucket {
	return &ClientBucket{
		clients: make(map[string]*LongConnection),
	}
}

type WorkerOption func(worker *Worker) error

type Worker struct {
	nodeID             string
	game               *game.Worker
	websocketUpgrade   *websocket.Upgrader
	CheckOriginHandler CheckOriginHandler

	clientBuckets     []*ClientBucket
	clientWorkers     []chan *MessagePack
	handlers          map[MessageType]HandlerFunc
	bucketMask        uint32
	clientWorkerCount int

	ConnectionRateLimiter *utils.RateLimiter
	maxConnectionCount    int32
	jwtSecret             string
	allowTestPath         bool
	redactHidden          atomic.Bool

	userConns sync.Map // userID -> *LongConnection

	stats struct {
		messageProcessed   int64
		messageErrors      int64
		avgProcessingTime  int64
		currentConnections int32
	}

	startOnce sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func WithJwtSecret(secret string) WorkerOption {
	return func(w *Worker) error {
		w.jwtSecret = secret
		return nil
	}
}

// WithTestPath 允许 /ws/test={userID} 免 token 连接，只用于测试环境
func WithTestPath(allow bool) WorkerOption {
	return func(w *Worker) error {
		w.allowTestPath = allow
		return nil
	}
}

func WithMaxConnections(n int) WorkerOption {
	return func(w *Worker) error {
		if n <= 0 {
			return fmt.Errorf("最大连接数必须大于 0: %d", n)
		}
		w.maxConnectionCount = int32(n)
		return nil
	}
}

// WithConnectRate 每秒新建连接数和突发倍数
func WithConnectRate(rate, burst int) WorkerOption {
	return func(w *Worker) error {
		if rate <= 0 {
			w.ConnectionRateLimiter = nil
			return nil
		}
		if burst <= 0 {
			burst = 1
		}
		w.ConnectionRateLimiter = utils.NewRateLimiter(rate, burst)
		return nil
	}
}

func WithRedactHidden(redact bool) WorkerOption {
	return func(w *Worker) error {
		w.redactHidden.Store(redact)
		return nil
	}
}

func NewWorker(nodeID string, gameWorker *game.Worker, opts ...WorkerOption) (*Worker, error) {
	if gameWorker == nil {
		return nil, errors.New("game worker 不能为空")
	}
	bucketCount := 32
	workerCount := runtime.NumCPU() * 2

	w := &Worker{
		nodeID:             nodeID,
		game:               gameWorker,
		handlers:           make(map[MessageType]HandlerFunc),
		bucketMask:         uint32(bucketCount - 1),
		clientWorkerCount:  workerCount,
		maxConnectionCount: 10000,
		stopCh:             make(chan struct{}),
		CheckOriginHandler: func(r *http.Request) bool {
			return true
		},
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	w.clientBuckets = make([]*ClientBucket, bucketCount)
	for i := range bucketCount {
		w.clientBuckets[i] = NewClientBucket()
	}
	w.clientWorkers = make([]chan *MessagePack, workerCount)
	for i := range workerCount {
		w.clientWorkers[i] = make(chan *MessagePack, 256)
	}
	w.websocketUpgrade = &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return w.CheckOriginHandler(r)
		},
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
	}
	w.injectDefaultHandlers()
	gameWorker.RoomManager.AddListener(w.onRoomEvent)
	return w, nil
}

// Start 启动消息处理协程，可以重复调用
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		for i := range w.clientWorkerCount {
			w.wg.Add(1)
			go w.clientWorkerRoutine(i)
		}
		w.wg.Add(1)
		go w.monitorPerformance()
		log.Info("websocket worker 启动了 %d 个 worker 协程和 %d 个连接分片桶", w.clientWorkerCount, len(w.clientBuckets))
	})
}

func (w *Worker) SetRedactHidden(redact bool) {
	w.redactHidden.Store(redact)
}

func (w *Worker) RedactHidden() bool {
	return w.redactHidden.Load()
}

// ServeWS 鉴权、限流之后升级为 websocket
func (w *Worker) ServeWS(writer http.ResponseWriter, r *http.Request) {
	userID, displayName, authMethod, err := w.identifyUser(r)
	if err != nil {
		http.Error(writer, "unauthorized", http.StatusUnauthorized)
		log.Warn("连接鉴权失败 remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	if w.ConnectionRateLimiter != nil && !w.ConnectionRateLimiter.Allow() {
		http.Error(writer, "Too many connections", http.StatusTooManyRequests)
		log.Warn("连接速率限流 exceeded from %s", r.RemoteAddr)
		return
	}
	if atomic.LoadInt32(&w.stats.currentConnections) >= w.maxConnectionCount {
		http.Error(writer, "Server is at capacity", http.StatusServiceUnavailable)
		log.Warn("连接达到阈值 %s", r.RemoteAddr)
		return
	}

	writer.Header().Add("Server", "national-chess")
	ws, err := w.websocketUpgrade.Upgrade(writer, r, nil)
	if err != nil {
		log.Warn("websocket 升级失败, err:%v", err)
		return
	}

	client := newLongConnection(ws, w, userID, displayName, authMethod)
	if !w.addClient(client) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server is at capacity"), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	w.bindUser(userID, client)
	client.Run()
	log.Info("WebSocket 建立连接: userID=%s, method=%s, connID=%s, remote=%s", userID, authMethod, client.ConnID, r.RemoteAddr)
}

func (w *Worker) addClient(client *LongConnection) bool {
	if atomic.AddInt32(&w.stats.currentConnections, 1) > w.maxConnectionCount {
		atomic.AddInt32(&w.stats.currentConnections, -1)
		log.Warn("addClient: 连接数达到上限")
		return false
	}
	bucket := w.getBucket(client.ConnID)
	bucket.Lock()
	bucket.clients[client.ConnID] = client
	bucket.Unlock()
	return true
}

// removeClient 读协程退出时调用，连接所在的房间按断线处理
func (w *Worker) removeClient(con *LongConnection) {
	bucket := w.getBucket(con.ConnID)
	removed := false

	bucket.Lock()
	if _, ok := bucket.clients[con.ConnID]; ok {
		delete(bucket.clients, con.ConnID)
		removed = true
	}
	bucket.Unlock()

	con.Close()
	if !removed {
		return
	}
	atomic.AddInt32(&w.stats.currentConnections, -1)

	session := con.GetSession()
	w.unbindUser(session.GetUserID(), con)
	if roomID := session.RoomID(); roomID != "" {
		w.disconnectRoom(con, roomID)
	}
}

// bindUser 同一用户只保留最新的连接，旧连接被踢下线
func (w *Worker) bindUser(userID string, con *LongConnection) {
	if old, loaded := w.userConns.Swap(userID, con); loaded {
		if existing := old.(*LongConnection); existing != con {
			log.Info("用户 %s 已有连接，踢出旧连接 %s", userID, existing.ConnID)
			existing.Close()
		}
	}
}

func (w *Worker) unbindUser(userID string, con *LongConnection) {
	if userID == "" {
		return
	}
	w.userConns.CompareAndDelete(userID, con)
}

// dispatch 按连接哈希选择处理协程，保证同一连接的消息有序
func (w *Worker) dispatch(pack *MessagePack, closeChan <-chan struct{}) bool {
	ch := w.clientWorkers[fnv32(pack.ConnID)%uint32(w.clientWorkerCount)]
	select {
	case ch <- pack:
		return true
	case <-closeChan:
		return false
	case <-w.stopCh:
		return false
	}
}

func (w *Worker) clientWorkerRoutine(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case pack := <-w.clientWorkers[workerID]:
			startTime := time.Now()

			if err := w.handlePack(pack); err != nil {
				atomic.AddInt64(&w.stats.messageErrors, 1)
			}

			processingTime := time.Since(startTime).Microseconds()
			atomic.AddInt64(&w.stats.messageProcessed, 1)
			oldAvg := atomic.LoadInt64(&w.stats.avgProcessingTime)
			atomic.StoreInt64(&w.stats.avgProcessingTime, (oldAvg*9+processingTime)/10)
		}
	}
}

// handlePack 解码并调用处理器，失败时只回复发送方
func (w *Worker) handlePack(pack *MessagePack) (err error) {
	con, ok := w.getClient(pack.ConnID)
	if !ok {
		return dto.ErrConnectionClosed
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error("客户端[%s] 消息处理异常: %v\n%s", pack.ConnID, p, debug.Stack())
			err = fmt.Errorf("panic: %v", p)
			w.replyError(con, err)
		}
	}()

	env, err := Decode(pack.Body)
	if err != nil {
		log.Warn("客户端[%s] 解码错误: %v", pack.ConnID, err)
		w.replyError(con, err)
		return err
	}
	handler, ok := w.handlers[env.Type]
	if !ok {
		err = fmt.Errorf("%w: %s", dto.ErrHandlerNotFound, env.Type)
		w.replyError(con, err)
		return err
	}

	session := con.GetSession()
	if roomID := session.RoomID(); roomID != "" {
		// 观战者不在玩家列表中，忽略错误
		_ = w.game.RoomManager.UpdateActivity(roomID, session.GetUserID())
	}
	if err = handler(con, env.Payload); err != nil {
		log.Debug("客户端[%s] %s 处理失败: %v", pack.ConnID, env.Type, err)
		w.replyError(con, err)
	}
	return err
}

func (w *Worker) monitorPerformance() {
	defer w.wg.Done()
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			log.Debug("性能监控: connections=%d, messages_processed=%d, avg_processing_time=%dμs, errors=%d",
				atomic.LoadInt32(&w.stats.currentConnections),
				atomic.LoadInt64(&w.stats.messageProcessed),
				atomic.LoadInt64(&w.stats.avgProcessingTime),
				atomic.LoadInt64(&w.stats.messageErrors))
		}
	}
}

func (w *Worker) getBucket(connID string) *ClientBucket {
	return w.clientBuckets[fnv32(connID)&w.bucketMask]
}

func (w *Worker) getClient(connID string) (*LongConnection, bool) {
	bucket := w.getBucket(connID)
	bucket.RLock()
	defer bucket.RUnlock()
	con, ok := bucket.clients[connID]
	return con, ok
}

func (w *Worker) eachClient(fn func(con *LongConnection)) {
	for _, bucket := range w.clientBuckets {
		bucket.RLock()
		clients := make([]*LongConnection, 0, len(bucket.clients))
		for _, con := range bucket.clients {
			clients = append(clients, con)
		}
		bucket.RUnlock()
		for _, con := range clients {
			fn(con)
		}
	}
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// identifyUser 测试路径或者 token 参数
func (w *Worker) identifyUser(r *http.Request) (userID, displayName, method string, err error) {
	if userID, ok := w.extractUserIDFromTestPath(r.URL.Path); ok {
		return userID, r.URL.Query().Get("name"), "test-path", nil
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return "", "", "", dto.ErrMissingToken
	}
	if w.jwtSecret == "" {
		return "", "", "", dto.ErrNoJwtSecret
	}
	claims, err := jwts.ParseToken(token, w.jwtSecret)
	if err != nil {
		return "", "", "", err
	}
	return claims.UserID, claims.DisplayName, "token", nil
}

// ConnectionCount 当前连接数
func (w *Worker) ConnectionCount() int {
	return int(atomic.LoadInt32(&w.stats.currentConnections))
}

// Close 断开所有连接并停止处理协程，可以重复调用
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.stopCh)
		w.eachClient(func(con *LongConnection) {
			con.Close()
		})
		w.wg.Wait()
		log.Info("websocket worker[%s] 已关闭", w.nodeID)
	})
}

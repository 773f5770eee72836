package conn

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/runtime/dto"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Connection interface {
	GetSession() *Session
	SendMessage(buf []byte) error
	Close()
}

type MessagePack struct {
	ConnID string
	Body   []byte
}

var connIDBase uint64 = 10000

var (
	pongWait             = 60 * time.Second
	writeWait            = 10 * time.Second
	pingInterval         = (pongWait * 9) / 10
	maxMessageSize int64 = 64 * 1024 // 布阵消息带 25 枚棋子
	writeChanSize        = 256
)

type LongConnection struct {
	ConnID    string
	Conn      *websocket.Conn
	worker    *Worker
	WriteChan chan []byte
	Session   *Session
	closeChan chan struct{}
	closeOnce sync.Once
}

func newLongConnection(conn *websocket.Conn, worker *Worker, userID, displayName, authMethod string) *LongConnection {
	connID := fmt.Sprintf("%s-%s-%d", uuid.New().String(), worker.nodeID, atomic.AddUint64(&connIDBase, 1))
	return &LongConnection{
		ConnID:    connID,
		Conn:      conn,
		worker:    worker,
		WriteChan: make(chan []byte, writeChanSize),
		Session:   NewSession(connID, userID, displayName, authMethod),
		closeChan: make(chan struct{}),
	}
}

func (con *LongConnection) Run() {
	con.Conn.SetPongHandler(con.PongHandler)
	go con.readMessage()
	go con.writeMessage()
}

func (con *LongConnection) writeMessage() {
	pingTicker := time.NewTicker(pingInterval)
	defer func() {
		pingTicker.Stop()
		_ = con.Conn.Close()
	}()

	for {
		select {
		case message := <-con.WriteChan:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("客户端[%s] SetWriteDeadline err :%+v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("客户端[%s] write stream err :%+v", con.ConnID, err)
				con.Close()
				return
			}
		case <-pingTicker.C:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("客户端[%s] ping SetWriteDeadline err :%+v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error("客户端[%s] ping  err :%+v", con.ConnID, err)
				con.Close()
				return
			}
		case <-con.closeChan:
			_ = con.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (con *LongConnection) readMessage() {
	defer func() {
		log.Debug("客户端[%s] 读协程停止", con.ConnID)
		con.worker.removeClient(con)
	}()
	con.Conn.SetReadLimit(maxMessageSize)
	if err := con.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error("SetReadDeadline err:%v", err)
		return
	}
	for {
		messageType, message, err := con.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("客户端[%s] 异常断开: %v", con.ConnID, err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			log.Warn("客户端[%s] 不支持的帧类型: %d", con.ConnID, messageType)
			continue
		}
		_ = con.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if !con.worker.dispatch(&MessagePack{ConnID: con.ConnID, Body: message}, con.closeChan) {
			return
		}
	}
}

func (con *LongConnection) PongHandler(string) error {
	return con.Conn.SetReadDeadline(time.Now().Add(pongWait))
}

func (con *LongConnection) GetSession() *Session {
	return con.Session
}

// SendMessage 不阻塞，写队列满时丢弃并返回错误
func (con *LongConnection) SendMessage(buf []byte) error {
	select {
	case <-con.closeChan:
		return dto.ErrConnectionClosed
	default:
	}
	select {
	case con.WriteChan <- buf:
		return nil
	case <-con.closeChan:
		return dto.ErrConnectionClosed
	default:
		return dto.ErrSendChanFull
	}
}

// Close 通知写协程发送关闭帧，可以重复调用
func (con *LongConnection) Close() {
	con.closeOnce.Do(func() {
		close(con.closeChan)
		log.Debug("客户端[%s] 连接关闭", con.ConnID)
	})
}

func (con *LongConnection) Closed() bool {
	select {
	case <-con.closeChan:
		return true
	default:
		return false
	}
}

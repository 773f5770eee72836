package node

import (
	"encoding/json"
	"sync"

	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/core/infrastructure/message/transfer"
)

// NatsWorker 房间事件发布器
// Publish 只入队不阻塞，由 writeChanMessage 串行发送
type NatsWorker struct {
	NatsCli   Client
	prefix    string
	source    string
	writeChan chan *transfer.RoomEventPacket

	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
}

// NewNatsWorker prefix: 主题前缀，source: 当前节点 ID
func NewNatsWorker(prefix, source string) *NatsWorker {
	if prefix == "" {
		prefix = transfer.DefaultSubjectPrefix
	}
	return &NatsWorker{
		prefix:    prefix,
		source:    source,
		writeChan: make(chan *transfer.RoomEventPacket, 1024),
		done:      make(chan struct{}),
	}
}

// Run 连接 nats 并开始发送
func (worker *NatsWorker) Run(url string) error {
	cli := NewNatsClient(worker.source)
	if err := cli.Run(url); err != nil {
		return err
	}
	worker.Attach(cli)
	return nil
}

// Attach 使用已连接的客户端开始发送
func (worker *NatsWorker) Attach(cli Client) {
	worker.mu.Lock()
	defer worker.mu.Unlock()
	if worker.running || worker.closed {
		return
	}
	worker.NatsCli = cli
	worker.running = true
	go worker.writeChanMessage()
}

// Publish 事件入队，未启动、已关闭或队列已满时返回错误
func (worker *NatsWorker) Publish(packet *transfer.RoomEventPacket) error {
	worker.mu.Lock()
	defer worker.mu.Unlock()
	if !worker.running || worker.closed {
		return transfer.ErrNotConnected
	}
	if packet.Source == "" {
		packet.Source = worker.source
	}
	select {
	case worker.writeChan <- packet:
		return nil
	default:
		return transfer.ErrSendChanFull
	}
}

func (worker *NatsWorker) writeChanMessage() {
	defer close(worker.done)
	for packet := range worker.writeChan {
		data, err := json.Marshal(packet)
		if err != nil {
			log.Error("NatsWorker 事件序列化失败: %v", err)
			continue
		}
		subject := transfer.RoomSubject(worker.prefix, packet.RoomID, packet.Event)
		if err := worker.NatsCli.SendMessage(subject, data); err != nil {
			log.Warn("nats 发送错误, subject: %s, err: %v", subject, err)
		}
	}
}

// Close 发送完队列中的事件后关闭连接，可重复调用
func (worker *NatsWorker) Close() {
	worker.mu.Lock()
	if worker.closed {
		worker.mu.Unlock()
		return
	}
	worker.closed = true
	running := worker.running
	close(worker.writeChan)
	worker.mu.Unlock()

	if running {
		<-worker.done
		if worker.NatsCli != nil {
			worker.NatsCli.Close()
		}
	}
}

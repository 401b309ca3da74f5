package interaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xh-polaris/chatstream-core-api/biz/infra/metrics"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/pkg/safego"
)

var (
	ErrNotStarted     = errors.New("event stream not started")
	ErrAlreadyStarted = errors.New("event stream already started")
	ErrTerminated     = errors.New("event stream already terminated")
)

// Sink 事件的传输层, sse或ndjson
type Sink interface {
	Write(e *chatevent.Event) error
	Close() error
}

const (
	phaseIdle = iota
	phaseStarted
	phaseTerminated
)

// Emitter 按顺序逐个写出事件, 保证start在前, 终止事件在后且只有一个
// 连接断开后写入变为空操作, 并通过onBroken通知编排方
type Emitter struct {
	mu        sync.Mutex
	sink      Sink
	phase     int
	broken    bool
	last      time.Time
	keepAlive time.Duration
	onBroken  func()
	stop      chan struct{}
}

// NewEmitter keepAlive小于等于0时不发送保活事件
func NewEmitter(sink Sink, keepAlive time.Duration, onBroken func()) *Emitter {
	return &Emitter{sink: sink, keepAlive: keepAlive, onBroken: onBroken, stop: make(chan struct{})}
}

func (e *Emitter) Start(user *chatevent.Message, conversation *chatevent.Conversation) error {
	return e.emit(chatevent.Start(user, conversation))
}

func (e *Emitter) Chunk(content string) error {
	if content == "" {
		return nil
	}
	return e.emit(chatevent.Chunk(content))
}

func (e *Emitter) Complete(assistant *chatevent.Message) error {
	return e.emit(chatevent.Complete(assistant))
}

func (e *Emitter) Error(message string) error {
	return e.emit(chatevent.Error(message))
}

// Broken 对端是否已断开
func (e *Emitter) Broken() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broken
}

// Close 停止保活并关闭传输层
func (e *Emitter) Close() error {
	e.mu.Lock()
	e.halt()
	e.mu.Unlock()
	return e.sink.Close()
}

func (e *Emitter) emit(ev *chatevent.Event) error {
	e.mu.Lock()
	switch {
	case e.phase == phaseTerminated:
		e.mu.Unlock()
		return ErrTerminated
	case e.phase == phaseIdle && ev.Type != chatevent.TypeStart:
		e.mu.Unlock()
		return ErrNotStarted
	case e.phase == phaseStarted && ev.Type == chatevent.TypeStart:
		e.mu.Unlock()
		return ErrAlreadyStarted
	}

	if ev.Type == chatevent.TypeStart {
		e.phase = phaseStarted
		if e.keepAlive > 0 {
			safego.Go(context.Background(), "keep-alive", e.keepAliveLoop, e.abort)
		}
	} else if ev.Terminal() {
		e.phase = phaseTerminated
		e.halt()
	}
	broke := e.write(ev)
	e.mu.Unlock()

	if broke && e.onBroken != nil {
		e.onBroken()
	}
	return nil
}

// write 需持有锁, 返回本次写入是否导致断开
func (e *Emitter) write(ev *chatevent.Event) (broke bool) {
	if e.broken {
		return false
	}
	if err := e.sink.Write(ev); err != nil {
		logs.Errorf("[interaction] write %s event err: %s", ev.Type, errorx.ErrorWithoutStack(err))
		e.broken = true
		e.halt()
		return true
	}
	e.last = time.Now()
	metrics.EventsTotal.WithLabelValues(ev.Type).Inc()
	return false
}

// halt 需持有锁
func (e *Emitter) halt() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// keepAliveLoop 距上次写入超过keepAlive时发送ping
func (e *Emitter) keepAliveLoop() {
	timer := time.NewTimer(e.keepAlive)
	defer timer.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-timer.C:
		}

		next, broke, done := e.ping()
		if broke && e.onBroken != nil {
			e.onBroken()
		}
		if broke || done {
			return
		}
		timer.Reset(next)
	}
}

// ping 持锁写出一次保活, 返回下次检查的间隔
func (e *Emitter) ping() (next time.Duration, broke, done bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != phaseStarted || e.broken {
		return 0, false, true
	}
	idle := time.Since(e.last)
	if idle < e.keepAlive {
		return e.keepAlive - idle, false, false
	}
	return e.keepAlive, e.write(chatevent.Ping()), false
}

// abort 保活协程异常退出时按断开处理
func (e *Emitter) abort(any) {
	e.mu.Lock()
	first := !e.broken
	e.broken = true
	e.halt()
	e.mu.Unlock()
	if first && e.onBroken != nil {
		e.onBroken()
	}
}

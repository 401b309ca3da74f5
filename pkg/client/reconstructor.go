package client

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
)

// Status 一个对话视图的请求状态
type Status int

const (
	Idle Status = iota
	Sending
)

func (s Status) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
	tempKeyPrefix = "tmp-"
)

// ConnectionLostMessage 传输层失败时展示的本地消息
const ConnectionLostMessage = "Connection lost. Please try again."

var ErrBusy = errors.New("a request is already in flight for this conversation")

// Item 本地消息列表中的一项
type Item struct {
	Key     string // 服务端id, 或占位消息的临时id
	Message chatevent.Message
	Pending bool // 模型回复进行中
	Local   bool // 本地合成, 未持久化
}

// Ticket 一次提交, 只有当前提交的事件会被处理
type Ticket uint64

// Reconstructor 将事件序列折叠为本地有序消息列表
//
//	Idle --Submit--> Sending --start/chunk--> Sending --complete/error/Fail--> Idle
//
// 进行中的模型回复占位由稳定的key跟踪, 通过过滤后追加保持在末尾.
type Reconstructor struct {
	mu             sync.Mutex
	conversationId string
	items          []*Item
	status         Status
	ticket         Ticket
	started        bool
	userKey        string
	assistantKey   string
}

// NewReconstructor conversationId为空表示新对话
func NewReconstructor(conversationId string, history []*chatevent.Message) *Reconstructor {
	r := &Reconstructor{conversationId: conversationId}
	for _, m := range history {
		if m == nil {
			continue
		}
		r.items = append(r.items, &Item{Key: m.Id, Message: *m})
	}
	return r
}

// Submit 插入用户消息与模型回复两个占位, 进入Sending
func (r *Reconstructor) Submit(content string, attachment *chatevent.Attachment) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == Sending {
		return 0, ErrBusy
	}
	r.ticket++
	r.status = Sending
	r.started = false
	r.userKey = tempKeyPrefix + uuid.NewString()
	r.assistantKey = tempKeyPrefix + uuid.NewString()
	r.items = append(r.items,
		&Item{Key: r.userKey, Message: chatevent.Message{Id: r.userKey, ConversationId: r.conversationId, Role: roleUser, Content: content, Attachment: attachment}},
		&Item{Key: r.assistantKey, Message: chatevent.Message{Id: r.assistantKey, ConversationId: r.conversationId, Role: roleAssistant}, Pending: true},
	)
	return r.ticket, nil
}

// Apply 处理一个事件, 返回是否被处理
// 非当前提交, 已回到Idle, start之前的chunk, 以及未知类型的事件都被忽略
func (r *Reconstructor) Apply(t Ticket, e *chatevent.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e == nil || t != r.ticket || r.status != Sending {
		return false
	}
	switch e.Type {
	case chatevent.TypeStart:
		if r.started {
			return false
		}
		r.started = true
		if e.UserMessage != nil {
			r.replace(r.userKey, &Item{Key: e.UserMessage.Id, Message: *e.UserMessage})
			r.userKey = e.UserMessage.Id
		}
		if e.Conversation != nil && e.Conversation.Id != "" && e.Conversation.Id != r.conversationId {
			r.conversationId = e.Conversation.Id
			if it := r.find(r.assistantKey); it != nil {
				it.Message.ConversationId = e.Conversation.Id
			}
		}
		r.moveLast(r.assistantKey)
	case chatevent.TypeChunk:
		// start之前的片段不属于任何一轮回复
		if !r.started {
			return false
		}
		it := r.find(r.assistantKey)
		if it == nil {
			return false
		}
		it.Message.Content += e.Content
	case chatevent.TypeComplete:
		if e.AssistantMessage == nil {
			r.failLocked(ConnectionLostMessage)
			return true
		}
		r.replace(r.assistantKey, &Item{Key: e.AssistantMessage.Id, Message: *e.AssistantMessage})
		r.status = Idle
	case chatevent.TypeError:
		r.failLocked(e.Message)
	default:
		return false
	}
	return true
}

// Fail 传输层失败, 与error事件处理相同
func (r *Reconstructor) Fail(t Ticket, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t != r.ticket || r.status != Sending {
		return false
	}
	if message == "" {
		message = ConnectionLostMessage
	}
	r.failLocked(message)
	return true
}

// failLocked 移除模型回复占位, 追加本地错误消息
func (r *Reconstructor) failLocked(message string) {
	r.remove(r.assistantKey)
	key := tempKeyPrefix + uuid.NewString()
	r.items = append(r.items, &Item{
		Key:     key,
		Message: chatevent.Message{Id: key, ConversationId: r.conversationId, Role: roleAssistant, Content: message},
		Local:   true,
	})
	r.status = Idle
}

func (r *Reconstructor) find(key string) *Item {
	for _, it := range r.items {
		if it.Key == key {
			return it
		}
	}
	return nil
}

func (r *Reconstructor) replace(key string, with *Item) {
	for i, it := range r.items {
		if it.Key == key {
			r.items[i] = with
			return
		}
	}
}

func (r *Reconstructor) remove(key string) {
	kept := r.items[:0]
	for _, it := range r.items {
		if it.Key != key {
			kept = append(kept, it)
		}
	}
	r.items = kept
}

// moveLast 过滤后追加, 不依赖下标
func (r *Reconstructor) moveLast(key string) {
	it := r.find(key)
	if it == nil {
		return
	}
	r.remove(key)
	r.items = append(r.items, it)
}

func (r *Reconstructor) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ConversationId 当前对话, start之后以服务端为准
func (r *Reconstructor) ConversationId() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversationId
}

// Messages 当前消息列表的副本
func (r *Reconstructor) Messages() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, *it)
	}
	return out
}

// Package chatevent 定义流式对话的出站事件协议, 服务端与客户端共用
//
// 每个事件是一条带type标签的json记录. 一次请求的事件序列为:
// 一个start, 若干chunk, 最后一个complete或error. 消费方应忽略未知的type.
package chatevent

import (
	"time"

	"github.com/bytedance/sonic"
)

// 事件类型
const (
	TypeStart    = "start"
	TypeChunk    = "chunk"
	TypeComplete = "complete"
	TypeError    = "error"
	// TypePing 保活, 不携带语义
	TypePing = "ping"
)

// Message 服务端确认后的消息
type Message struct {
	Id             string      `json:"id"`
	ConversationId string      `json:"conversationId"`
	Role           string      `json:"role"`
	Content        string      `json:"content"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

// Conversation 对话摘要
type Conversation struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event 标签联合, 各类型只使用自己的字段
type Event struct {
	Type             string        `json:"type"`
	UserMessage      *Message      `json:"userMessage,omitempty"`
	Conversation     *Conversation `json:"conversation,omitempty"`
	Content          string        `json:"content,omitempty"`
	AssistantMessage *Message      `json:"assistantMessage,omitempty"`
	Message          string        `json:"message,omitempty"`
}

func Start(user *Message, conversation *Conversation) *Event {
	return &Event{Type: TypeStart, UserMessage: user, Conversation: conversation}
}

func Chunk(content string) *Event {
	return &Event{Type: TypeChunk, Content: content}
}

func Complete(assistant *Message) *Event {
	return &Event{Type: TypeComplete, AssistantMessage: assistant}
}

func Error(message string) *Event {
	return &Event{Type: TypeError, Message: message}
}

func Ping() *Event {
	return &Event{Type: TypePing}
}

// Terminal 是否为终止事件
func (e *Event) Terminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// Known 是否为协议内的语义事件, ping与未知类型均返回false
func (e *Event) Known() bool {
	switch e.Type {
	case TypeStart, TypeChunk, TypeComplete, TypeError:
		return true
	}
	return false
}

func Marshal(e *Event) ([]byte, error) {
	return sonic.Marshal(e)
}

func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := sonic.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

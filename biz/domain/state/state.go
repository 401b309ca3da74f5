package state

// 状态域, 承载一次流式对话请求内的上下文

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	mmsg "github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
)

// Attach 请求中附带的文件
type Attach struct {
	Filename      string
	MimeType      string
	Base64Payload string
}

// RelayContext 一次请求的会话状态, 只由处理该请求的协程读写, 请求结束即丢弃
type RelayContext struct {
	Conversation     *conversation.Conversation
	UserMessage      *mmsg.Message
	Content          string // 去除首尾空白后的用户输入
	Attach           *Attach
	History          []*schema.Message
	Text             strings.Builder // 模型回复的累积
	Complete         bool            // 模型回复是否已完整
	AssistantMessage *mmsg.Message
	Emitter          *interaction.Emitter
	Ctx              context.Context    // 请求ctx, 模型调用随其取消
	Cancel           context.CancelFunc // 对端断开时取消模型调用
	Err              error              // 流程中第一个不可恢复的错误
}

func (r *RelayContext) HasAttach() bool {
	return r.Attach != nil
}

// Fail 记录第一个错误
func (r *RelayContext) Fail(err error) error {
	if r.Err == nil {
		r.Err = err
	}
	return err
}

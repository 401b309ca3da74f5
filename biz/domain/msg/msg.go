package msg

// 存储消息, 模型消息与事件消息之间的转换

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	mmsg "github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserMMsg 构建用户消息, content需已去除首尾空白
func UserMMsg(cid, uid bson.ObjectID, content string, attach *mmsg.Attachment) *mmsg.Message {
	return newMMsg(cid, uid, cst.User, content, attach)
}

// AssistantMMsg 构建模型消息
func AssistantMMsg(cid, uid bson.ObjectID, content string) *mmsg.Message {
	return newMMsg(cid, uid, cst.Assistant, content, nil)
}

func newMMsg(cid, uid bson.ObjectID, role, content string, attach *mmsg.Attachment) *mmsg.Message {
	return &mmsg.Message{
		MessageId:      bson.NewObjectID(),
		ConversationId: cid,
		UserId:         uid,
		Content:        content,
		Role:           cst.RoleStoI[role],
		Attachment:     attach,
		CreateTime:     time.Now(),
		Status:         cst.ActiveStatus,
	}
}

// MMsgsToEMsgs 历史消息转换为模型输入, 保持原有顺序
// 只有附件的用户消息以文件名占位, 空的模型消息被跳过
func MMsgsToEMsgs(msgs []*mmsg.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if strings.TrimSpace(content) == "" {
			if m.Attachment == nil {
				continue
			}
			content = fmt.Sprintf("[Attached file: %s]", m.Attachment.Filename)
		}
		switch cst.RoleItoS[m.Role] {
		case cst.User:
			out = append(out, schema.UserMessage(content))
		case cst.Assistant:
			out = append(out, schema.AssistantMessage(content, nil))
		}
	}
	return out
}

// MMsgToEvent 转换为事件中的消息
func MMsgToEvent(m *mmsg.Message) *chatevent.Message {
	if m == nil {
		return nil
	}
	e := &chatevent.Message{
		Id:             m.MessageId.Hex(),
		ConversationId: m.ConversationId.Hex(),
		Role:           cst.RoleItoS[m.Role],
		Content:        m.Content,
		CreatedAt:      m.CreateTime,
	}
	if m.Attachment != nil {
		e.Attachment = &chatevent.Attachment{Filename: m.Attachment.Filename, MimeType: m.Attachment.MimeType, URL: m.Attachment.URL}
	}
	return e
}

// ConversationToEvent 转换为事件中的对话摘要
func ConversationToEvent(c *conversation.Conversation) *chatevent.Conversation {
	if c == nil {
		return nil
	}
	return &chatevent.Conversation{
		Id:        c.ConversationId.Hex(),
		Title:     c.Title,
		CreatedAt: c.CreateTime,
		UpdatedAt: c.UpdateTime,
	}
}

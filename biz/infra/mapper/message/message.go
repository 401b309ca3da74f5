package message

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message 一条消息, 可能归属于用户或模型, 写入后内容不可变
type Message struct {
	MessageId      bson.ObjectID `json:"message_id" bson:"_id"`                              // 主键
	ConversationId bson.ObjectID `json:"conversation_id" bson:"conversation_id"`             // 归属的对话id
	UserId         bson.ObjectID `json:"user_id" bson:"user_id"`                             // 用户id
	Content        string        `json:"content" bson:"content"`                             // 消息内容
	Role           int32         `json:"role" bson:"role"`                                   // 角色, user/assistant, 依次为1,2
	Attachment     *Attachment   `json:"attachment,omitempty" bson:"attachment,omitempty"`   // 附件信息, 只有用户消息有
	CreateTime     time.Time     `json:"create_time" bson:"create_time"`                     // 创建时间
	DeleteTime     time.Time     `json:"delete_time,omitempty" bson:"delete_time,omitempty"` // 删除时间
	Status         int32         `json:"status" bson:"status"`                               // 状态, 正常/删除, 依次为0,-1
}

// Attachment 随消息上传的文件, 只记录元信息和归档地址
type Attachment struct {
	Filename string `json:"filename" bson:"filename"`
	MimeType string `json:"mime_type" bson:"mime_type"`
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
}

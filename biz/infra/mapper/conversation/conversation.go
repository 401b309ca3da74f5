package conversation

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Conversation 对话, 归属于唯一用户
type Conversation struct {
	ConversationId bson.ObjectID `json:"conversation_id" bson:"_id"`
	UserId         bson.ObjectID `json:"user_id" bson:"user_id"`
	Title          string        `json:"title" bson:"title"`
	CreateTime     time.Time     `json:"create_time" bson:"create_time"`
	UpdateTime     time.Time     `json:"update_time" bson:"update_time"`
	DeleteTime     time.Time     `json:"delete_time,omitempty" bson:"delete_time,omitempty"`
	Status         int           `json:"status" bson:"status"`
}

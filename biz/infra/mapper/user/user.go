package user

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	StatusNormal    = 0 // 正常状态
	StatusForbidden = 1 // 封禁状态
)

// User 用户, 注册与登录由外部服务负责, 这里只读
type User struct {
	ID         bson.ObjectID `json:"id" bson:"_id,omitempty"`    // ID
	Name       string        `json:"name" bson:"name,omitempty"` // 用户名
	Status     int           `json:"status" bson:"status"`       // 状态
	CreateTime time.Time     `json:"create_time" bson:"create_time"`
	UpdateTime time.Time     `json:"update_time" bson:"update_time"`
}

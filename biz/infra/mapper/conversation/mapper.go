package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/zeromicro/go-zero/core/stores/monc"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ MongoMapper = (*mongoMapper)(nil)

const (
	collection     = "conversation"
	cacheKeyPrefix = "cache:conversation:"
)

// ErrNotFound 对话不存在或不属于该用户, 两者对调用方不做区分
var ErrNotFound = errors.New("conversation not found")

type MongoMapper interface {
	CreateConversation(ctx context.Context, uid bson.ObjectID, title string) (*Conversation, error)
	FindOwned(ctx context.Context, cid, uid bson.ObjectID) (*Conversation, error)
	Touch(ctx context.Context, cid bson.ObjectID) error
	DeleteConversation(ctx context.Context, cid, uid bson.ObjectID) error
}

type mongoMapper struct {
	conn *monc.Model
}

func NewConversationMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

// CreateConversation 创建并缓存一个新的对话
func (m *mongoMapper) CreateConversation(ctx context.Context, uid bson.ObjectID, title string) (*Conversation, error) {
	now := time.Now()
	c := &Conversation{
		ConversationId: bson.NewObjectID(),
		UserId:         uid,
		Title:          title,
		CreateTime:     now,
		UpdateTime:     now,
		Status:         cst.ActiveStatus,
	}
	if _, err := m.conn.InsertOne(ctx, cacheKeyPrefix+c.ConversationId.Hex(), c); err != nil {
		logs.CtxErrorf(ctx, "[mapper] [conversation] [CreateConversation] insert err:%s", errorx.ErrorWithoutStack(err))
		return nil, err
	}
	return c, nil
}

// FindOwned 查询uid名下未删除的对话
func (m *mongoMapper) FindOwned(ctx context.Context, cid, uid bson.ObjectID) (*Conversation, error) {
	var c Conversation
	err := m.conn.FindOne(ctx, cacheKeyPrefix+cid.Hex(), &c, bson.M{cst.Id: cid})
	if errors.Is(err, monc.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		logs.CtxErrorf(ctx, "[mapper] [conversation] [FindOwned] find err:%s", errorx.ErrorWithoutStack(err))
		return nil, err
	}
	// 缓存按id命中, 归属与状态在这里校验
	if c.UserId != uid || c.Status == cst.DeletedStatus {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Touch 刷新更新时间, 并发写入时以最后一次为准
func (m *mongoMapper) Touch(ctx context.Context, cid bson.ObjectID) error {
	_, err := m.conn.UpdateOne(ctx, cacheKeyPrefix+cid.Hex(), bson.M{cst.Id: cid},
		bson.M{cst.Set: bson.M{cst.UpdateTime: time.Now()}})
	return err
}

// DeleteConversation 软删除对话
func (m *mongoMapper) DeleteConversation(ctx context.Context, cid, uid bson.ObjectID) error {
	now := time.Now()
	filter := bson.M{cst.Id: cid, cst.UserId: uid, cst.Status: bson.M{cst.NE: cst.DeletedStatus}}
	res, err := m.conn.UpdateOne(ctx, cacheKeyPrefix+cid.Hex(), filter,
		bson.M{cst.Set: bson.M{cst.UpdateTime: now, cst.DeleteTime: now, cst.Status: cst.DeletedStatus}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

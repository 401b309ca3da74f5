package message

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
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ MongoMapper = (*mongoMapper)(nil)

const (
	collection     = "message"
	cacheKeyPrefix = "cache:message:"
)

type MongoMapper interface {
	InsertOne(ctx context.Context, msg *Message) error
	RetrieveMessages(ctx context.Context, cid bson.ObjectID) ([]*Message, error)
	DeleteByConversation(ctx context.Context, cid bson.ObjectID) error
}

type mongoMapper struct {
	conn *monc.Model
}

func NewMessageMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

// RetrieveMessages 按创建时间正序取出对话的全部消息, 时间相同时按id排序
func (m *mongoMapper) RetrieveMessages(ctx context.Context, cid bson.ObjectID) (msgs []*Message, err error) {
	opts := options.Find().SetSort(bson.D{{Key: cst.CreateTime, Value: 1}, {Key: cst.Id, Value: 1}})
	if err = m.conn.Find(ctx, &msgs, bson.M{cst.ConversationId: cid, cst.Status: bson.M{cst.NE: cst.DeletedStatus}},
		opts); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		logs.CtxErrorf(ctx, "[mapper] [message] [RetrieveMessages] find err:%s", errorx.ErrorWithoutStack(err))
		return nil, err
	}
	return msgs, nil
}

// InsertOne 插入一条msg, 消息只在完整内容确定后写入一次
func (m *mongoMapper) InsertOne(ctx context.Context, msg *Message) error {
	_, err := m.conn.InsertOneNoCache(ctx, msg)
	return err
}

// DeleteByConversation 随对话一起软删除
func (m *mongoMapper) DeleteByConversation(ctx context.Context, cid bson.ObjectID) error {
	now := time.Now()
	_, err := m.conn.UpdateManyNoCache(ctx, bson.M{cst.ConversationId: cid, cst.Status: bson.M{cst.NE: cst.DeletedStatus}},
		bson.M{cst.Set: bson.M{cst.DeleteTime: now, cst.Status: cst.DeletedStatus}})
	return err
}

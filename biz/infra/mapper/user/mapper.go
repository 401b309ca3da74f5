package user

import (
	"context"
	"errors"

	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/zeromicro/go-zero/core/stores/monc"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ MongoMapper = (*mongoMapper)(nil)

const (
	collection     = "user"
	cacheKeyPrefix = "cache:user:"
)

var ErrNotFound = errors.New("user not found")

type MongoMapper interface {
	FindById(ctx context.Context, id bson.ObjectID) (*User, error)
}

type mongoMapper struct {
	conn *monc.Model
}

func NewUserMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

// FindById 查询正常状态的用户, 封禁用户视为不存在
func (m *mongoMapper) FindById(ctx context.Context, id bson.ObjectID) (*User, error) {
	var u User
	err := m.conn.FindOne(ctx, cacheKeyPrefix+id.Hex(), &u, bson.M{cst.Id: id})
	if errors.Is(err, monc.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	if u.Status == StatusForbidden {
		return nil, ErrNotFound
	}
	return &u, nil
}

package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"go.mongodb.org/mongo-driver/v2/bson"
)

/* 对话历史记录 */

const (
	cachePrefix = "chat:history:"
	genPrefix   = "chat:history:gen:"
)

// rebuildScript 世代号与读取数据库前一致时才写入缓存
// KEYS[1] 缓存, KEYS[2] 世代号; ARGV[1] 读取前的世代号, ARGV[2] ttl, 之后为field/value
const rebuildScript = `if (redis.call('GET', KEYS[2]) or '') ~= ARGV[1] then
	return 0
end
for i = 3, #ARGV, 2 do
	redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1`

var errCacheMiss = errors.New("history cache miss")

// Cache 历史记录缓存所需的redis命令, *redis.Redis 满足该接口
type Cache interface {
	HgetallCtx(ctx context.Context, key string) (map[string]string, error)
	GetCtx(ctx context.Context, key string) (string, error)
	IncrCtx(ctx context.Context, key string) (int64, error)
	ExpireCtx(ctx context.Context, key string, seconds int) error
	DelCtx(ctx context.Context, keys ...string) (int, error)
	EvalCtx(ctx context.Context, script string, keys []string, args ...any) (any, error)
}

// HistoryManager 历史记录管理, 所有的历史记录都按照从旧到新排序
type HistoryManager struct {
	cache  Cache
	mapper message.MongoMapper
	ttl    time.Duration
}

// NewHistoryManager 使用第一个缓存节点作为历史记录缓存
func NewHistoryManager(c *config.Config, mapper message.MongoMapper) *HistoryManager {
	var cache Cache
	if len(c.Cache) > 0 {
		cache = redis.MustNewRedis(c.Cache[0].RedisConf)
	}
	return New(cache, mapper, c.Stream.HistoryTTL)
}

// New 创建一个新的历史记录管理器, cache为nil时直接读写数据库
func New(cache Cache, mapper message.MongoMapper, ttl time.Duration) *HistoryManager {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &HistoryManager{cache: cache, mapper: mapper, ttl: ttl}
}

// RetrieveMessage 获取对话的全部消息
// 首先从缓存中获取, 获取失败时从数据库中获取, 后重新构建缓存
// 读取期间有新消息写入时不重建, 避免旧快照覆盖失效
func (h *HistoryManager) RetrieveMessage(ctx context.Context, cid bson.ObjectID) (msgs []*message.Message, err error) {
	// retrieve cache
	if msgs, err = h.retrieveFromCache(ctx, cid); err == nil {
		return msgs, nil
	} else if !errors.Is(err, errCacheMiss) {
		logs.CtxErrorf(ctx, "[history] retrieve cache err: %s", errorx.ErrorWithoutStack(err))
	}
	gen, genErr := h.generation(ctx, cid)
	// retrieve storage
	if msgs, err = h.mapper.RetrieveMessages(ctx, cid); err != nil {
		return nil, err
	}
	// rebuild cache
	if len(msgs) > 0 && genErr == nil {
		if err = h.cacheMessages(ctx, cid, gen, msgs); err != nil {
			logs.CtxErrorf(ctx, "[history] cache msgs err: %s", errorx.ErrorWithoutStack(err))
		}
	}
	return msgs, nil
}

// AddMessage 新增消息
// 首先插入数据库, 然后推进世代号并使缓存失效, 下次读取时重建
func (h *HistoryManager) AddMessage(ctx context.Context, msg *message.Message) (err error) {
	// add to storage
	if err = h.mapper.InsertOne(ctx, msg); err != nil {
		logs.CtxErrorf(ctx, "[history] add message err: %s", errorx.ErrorWithoutStack(err))
		return err
	}
	h.bump(ctx, msg.ConversationId)
	h.Invalidate(ctx, msg.ConversationId)
	return nil
}

// generation 当前世代号, 不存在时为空串
func (h *HistoryManager) generation(ctx context.Context, cid bson.ObjectID) (string, error) {
	if h.cache == nil {
		return "", errCacheMiss
	}
	gen, err := h.cache.GetCtx(ctx, genKey(cid))
	if err != nil {
		logs.CtxErrorf(ctx, "[history] get generation err: %s", errorx.ErrorWithoutStack(err))
	}
	return gen, err
}

func (h *HistoryManager) bump(ctx context.Context, cid bson.ObjectID) {
	if h.cache == nil {
		return
	}
	k := genKey(cid)
	if _, err := h.cache.IncrCtx(ctx, k); err != nil {
		logs.CtxErrorf(ctx, "[history] bump generation err: %s", errorx.ErrorWithoutStack(err))
		return
	}
	// 世代号比缓存多保留一个周期
	if err := h.cache.ExpireCtx(ctx, k, int(2*h.ttl.Seconds())); err != nil {
		logs.CtxErrorf(ctx, "[history] expire generation err: %s", errorx.ErrorWithoutStack(err))
	}
}

// Invalidate 删除对话的历史缓存
func (h *HistoryManager) Invalidate(ctx context.Context, cid bson.ObjectID) {
	if h.cache == nil {
		return
	}
	if _, err := h.cache.DelCtx(ctx, key(cid)); err != nil {
		logs.CtxErrorf(ctx, "[history] invalidate cache err: %s", errorx.ErrorWithoutStack(err))
	}
}

func (h *HistoryManager) retrieveFromCache(ctx context.Context, cid bson.ObjectID) ([]*message.Message, error) {
	if h.cache == nil {
		return nil, errCacheMiss
	}
	result, err := h.cache.HgetallCtx(ctx, key(cid))
	if err != nil {
		return nil, err
	} else if len(result) == 0 {
		return nil, errCacheMiss
	}

	msgs := make([]*message.Message, 0, len(result))
	for _, data := range result {
		var msg message.Message
		if err = sonic.UnmarshalString(data, &msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, &msg)
	}
	Sort(msgs)
	return msgs, nil
}

func (h *HistoryManager) cacheMessages(ctx context.Context, cid bson.ObjectID, gen string, msgs []*message.Message) error {
	args := make([]any, 0, 2+2*len(msgs))
	args = append(args, gen, int(h.ttl.Seconds()))
	for _, msg := range msgs {
		data, err := sonic.MarshalString(msg)
		if err != nil {
			return err
		}
		args = append(args, msg.MessageId.Hex(), data)
	}
	_, err := h.cache.EvalCtx(ctx, rebuildScript, []string{key(cid), genKey(cid)}, args...)
	return err
}

// Sort 按创建时间正序, 时间相同时按id正序
func Sort(msgs []*message.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreateTime.Equal(msgs[j].CreateTime) {
			return msgs[i].CreateTime.Before(msgs[j].CreateTime)
		}
		return msgs[i].MessageId.Hex() < msgs[j].MessageId.Hex()
	})
}

func key(cid bson.ObjectID) string {
	return cachePrefix + cid.Hex()
}

func genKey(cid bson.ObjectID) string {
	return genPrefix + cid.Hex()
}

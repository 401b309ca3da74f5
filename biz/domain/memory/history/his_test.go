package history

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memCache 模拟redis, EvalCtx按rebuildScript的语义执行
type memCache struct {
	data map[string]map[string]string
	strs map[string]string
	ttl  map[string]int
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string]map[string]string{}, strs: map[string]string{}, ttl: map[string]int{}}
}

func (c *memCache) GetCtx(_ context.Context, key string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.strs[key], nil
}

func (c *memCache) IncrCtx(_ context.Context, key string) (int64, error) {
	n, _ := strconv.ParseInt(c.strs[key], 10, 64)
	n++
	c.strs[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *memCache) EvalCtx(_ context.Context, _ string, keys []string, args ...any) (any, error) {
	if c.strs[keys[1]] != args[0].(string) {
		return int64(0), nil
	}
	fields := map[string]string{}
	for i := 2; i+1 < len(args); i += 2 {
		fields[args[i].(string)] = args[i+1].(string)
	}
	_ = c.HmsetCtx(context.Background(), keys[0], fields)
	c.ttl[keys[0]] = args[1].(int)
	return int64(1), nil
}

func (c *memCache) HgetallCtx(_ context.Context, key string) (map[string]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.data[key], nil
}

func (c *memCache) HmsetCtx(_ context.Context, key string, fields map[string]string) error {
	if c.data[key] == nil {
		c.data[key] = map[string]string{}
	}
	for k, v := range fields {
		c.data[key][k] = v
	}
	return nil
}

func (c *memCache) ExpireCtx(_ context.Context, key string, seconds int) error {
	c.ttl[key] = seconds
	return nil
}

func (c *memCache) DelCtx(_ context.Context, keys ...string) (int, error) {
	for _, k := range keys {
		delete(c.data, k)
	}
	return len(keys), nil
}

type memMapper struct {
	msgs      []*message.Message
	reads     int
	afterRead func()
}

func (m *memMapper) InsertOne(_ context.Context, msg *message.Message) error {
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMapper) RetrieveMessages(_ context.Context, cid bson.ObjectID) ([]*message.Message, error) {
	m.reads++
	var out []*message.Message
	for _, msg := range m.msgs {
		if msg.ConversationId == cid {
			out = append(out, msg)
		}
	}
	Sort(out)
	if m.afterRead != nil {
		f := m.afterRead
		m.afterRead = nil
		f()
	}
	return out, nil
}

func (m *memMapper) DeleteByConversation(context.Context, bson.ObjectID) error { return nil }

func newMsg(cid bson.ObjectID, content string, at time.Time) *message.Message {
	return &message.Message{MessageId: bson.NewObjectID(), ConversationId: cid, Content: content, CreateTime: at}
}

func TestRetrieveRebuildsCacheInOrder(t *testing.T) {
	ctx := context.Background()
	cache, mapper := newMemCache(), &memMapper{}
	h := New(cache, mapper, time.Hour)
	cid, now := bson.NewObjectID(), time.Now()

	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "second", now.Add(time.Second))))
	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "first", now)))

	msgs, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, 3600, cache.ttl[key(cid)])

	// 第二次读取命中缓存
	msgs, err = h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, 1, mapper.reads)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestAddMessageInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	cache, mapper := newMemCache(), &memMapper{}
	h := New(cache, mapper, time.Hour)
	cid, now := bson.NewObjectID(), time.Now()

	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "a", now)))
	_, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	require.NotEmpty(t, cache.data[key(cid)])

	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "b", now.Add(time.Millisecond))))
	assert.Empty(t, cache.data[key(cid)])

	msgs, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestCacheErrorFallsBackToStorage(t *testing.T) {
	ctx := context.Background()
	cache, mapper := newMemCache(), &memMapper{}
	cache.err = errors.New("connection refused")
	h := New(cache, mapper, time.Hour)
	cid := bson.NewObjectID()
	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "a", time.Now())))

	msgs, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()
	h := New(nil, &memMapper{}, 0)
	cid := bson.NewObjectID()
	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "a", time.Now())))
	msgs, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

// 读取数据库之后, 重建缓存之前有新消息写入, 旧快照不能进入缓存
func TestConcurrentAddDuringRebuild(t *testing.T) {
	ctx := context.Background()
	cache, mapper := newMemCache(), &memMapper{}
	h := New(cache, mapper, time.Hour)
	cid, now := bson.NewObjectID(), time.Now()
	require.NoError(t, h.AddMessage(ctx, newMsg(cid, "q1", now)))

	mapper.afterRead = func() {
		require.NoError(t, h.AddMessage(ctx, newMsg(cid, "q2", now.Add(time.Second))))
	}
	msgs, err := h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Empty(t, cache.data[key(cid)])

	msgs, err = h.RetrieveMessage(ctx, cid)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q2", msgs[1].Content)
	assert.Len(t, cache.data[key(cid)], 2)
}

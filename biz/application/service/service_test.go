package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/flow"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	gateway "github.com/xh-polaris/chatstream-core-api/biz/domain/model"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	mmsg "github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/storage"
	"github.com/xh-polaris/chatstream-core-api/pkg/ac"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// tokenAuth 令牌即用户id的十六进制
type tokenAuth struct{}

func (tokenAuth) Resolve(_ context.Context, token string) (bson.ObjectID, error) {
	uid, err := bson.ObjectIDFromHex(strings.TrimPrefix(token, cst.BearerPrefix))
	if err != nil {
		return bson.NilObjectID, errorx.WrapByCode(err, errno.UnAuthErrCode)
	}
	return uid, nil
}

type memConversations struct {
	mu      sync.Mutex
	convs   map[bson.ObjectID]*conversation.Conversation
	creates int
}

func newMemConversations() *memConversations {
	return &memConversations{convs: map[bson.ObjectID]*conversation.Conversation{}}
}

func (m *memConversations) CreateConversation(_ context.Context, uid bson.ObjectID, title string) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	now := time.Now()
	c := &conversation.Conversation{ConversationId: bson.NewObjectID(), UserId: uid, Title: title, CreateTime: now, UpdateTime: now}
	m.convs[c.ConversationId] = c
	return c, nil
}

func (m *memConversations) FindOwned(_ context.Context, cid, uid bson.ObjectID) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[cid]
	if !ok || c.UserId != uid || c.Status == cst.DeletedStatus {
		return nil, conversation.ErrNotFound
	}
	return c, nil
}

func (m *memConversations) Touch(_ context.Context, cid bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.convs[cid]; ok {
		c.UpdateTime = time.Now()
	}
	return nil
}

func (m *memConversations) DeleteConversation(_ context.Context, cid, uid bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[cid]
	if !ok || c.UserId != uid {
		return conversation.ErrNotFound
	}
	c.Status = cst.DeletedStatus
	return nil
}

// memMessages 同时充当消息存储与历史
type memMessages struct {
	mu          sync.Mutex
	msgs        []*mmsg.Message
	invalidated []bson.ObjectID
}

func (m *memMessages) InsertOne(_ context.Context, msg *mmsg.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMessages) RetrieveMessages(_ context.Context, cid bson.ObjectID) ([]*mmsg.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*mmsg.Message
	for _, msg := range m.msgs {
		if msg.ConversationId == cid && msg.Status != cst.DeletedStatus {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out, nil
}

func (m *memMessages) DeleteByConversation(_ context.Context, cid bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.ConversationId == cid {
			msg.Status = cst.DeletedStatus
		}
	}
	return nil
}

func (m *memMessages) RetrieveMessage(ctx context.Context, cid bson.ObjectID) ([]*mmsg.Message, error) {
	return m.RetrieveMessages(ctx, cid)
}

func (m *memMessages) AddMessage(ctx context.Context, msg *mmsg.Message) error {
	return m.InsertOne(ctx, msg)
}

func (m *memMessages) Invalidate(_ context.Context, cid bson.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, cid)
}

func (m *memMessages) count(cid bson.ObjectID, role string) int {
	msgs, _ := m.RetrieveMessages(context.Background(), cid)
	n := 0
	for _, msg := range msgs {
		if msg.Role == cst.RoleStoI[role] {
			n++
		}
	}
	return n
}

// chatModel 流式回复按空格切分; 文件分析返回固定文本
type chatModel struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *chatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *chatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var chunks []*schema.Message
	for _, tok := range strings.SplitAfter(m.reply, " ") {
		chunks = append(chunks, schema.AssistantMessage(tok, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

type recordSink struct {
	mu     sync.Mutex
	events []*chatevent.Event
	failAt int
	closed bool
}

func (s *recordSink) Write(e *chatevent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("broken pipe")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordSink) types() []string {
	var ts []string
	for _, e := range s.events {
		ts = append(ts, e.Type)
	}
	return ts
}

func (s *recordSink) content() string {
	var sb strings.Builder
	for _, e := range s.events {
		if e.Type == chatevent.TypeChunk {
			sb.WriteString(e.Content)
		}
	}
	return sb.String()
}

type fixture struct {
	svc   *CompletionsService
	convs *memConversations
	msgs  *memMessages
	chat  *chatModel
	waits []time.Duration
	uid   bson.ObjectID
}

func newFixture(t *testing.T, words ...string) *fixture {
	t.Helper()
	fx := &fixture{convs: newMemConversations(), msgs: &memMessages{}, chat: &chatModel{reply: "2 + 2 = 4"}, uid: bson.NewObjectID()}
	c := &config.Config{Stream: config.Stream{MaxContentLength: 10000}}

	retrier := gateway.NewRetrier(3, time.Second)
	retrier.Sleep = func(_ context.Context, d time.Duration) error {
		fx.waits = append(fx.waits, d)
		return nil
	}
	gw := gateway.New(fx.chat, fx.chat, retrier, time.Minute)
	f, err := flow.New(fx.msgs, gw, fx.convs, 0, func(context.Context, time.Duration) error { return nil })
	require.NoError(t, err)
	filter, err := ac.New(words)
	require.NoError(t, err)

	fx.svc = &CompletionsService{
		Config:             c,
		Auth:               tokenAuth{},
		ConversationMapper: fx.convs,
		History:            fx.msgs,
		Archiver:           storage.NewArchiver(nil),
		Sensitive:          filter,
		Validate:           NewValidator(),
		Flow:               f,
	}
	return fx
}

func (fx *fixture) run(req *core_api.CompletionsReq, sink *recordSink) (opened bool, err error) {
	if req.Token == "" {
		req.Token = fx.uid.Hex()
	}
	err = fx.svc.Completions(context.Background(), req, func() interaction.Sink {
		opened = true
		return sink
	})
	return opened, err
}

func assertCode(t *testing.T, err error, want int32) {
	t.Helper()
	se, ok := errorx.FromError(err)
	require.True(t, ok, "err=%v", err)
	assert.Equal(t, want, se.Code())
}

func TestNewConversationScenario(t *testing.T) {
	fx := newFixture(t)
	sink := &recordSink{}
	_, err := fx.run(&core_api.CompletionsReq{Content: "  2+2?  "}, sink)
	require.NoError(t, err)

	require.Len(t, fx.convs.convs, 1)
	var conv *conversation.Conversation
	for _, c := range fx.convs.convs {
		conv = c
	}
	assert.Equal(t, "2+2?", conv.Title)

	ts := sink.types()
	require.GreaterOrEqual(t, len(ts), 3)
	assert.Equal(t, chatevent.TypeStart, ts[0])
	assert.Equal(t, chatevent.TypeComplete, ts[len(ts)-1])
	for _, typ := range ts[1 : len(ts)-1] {
		assert.Equal(t, chatevent.TypeChunk, typ)
	}

	start := sink.events[0]
	assert.Equal(t, "2+2?", start.UserMessage.Content)
	assert.Equal(t, cst.User, start.UserMessage.Role)
	assert.Equal(t, conv.ConversationId.Hex(), start.Conversation.Id)

	complete := sink.events[len(sink.events)-1]
	assert.Equal(t, "2 + 2 = 4", complete.AssistantMessage.Content)
	assert.Equal(t, sink.content(), complete.AssistantMessage.Content)
	assert.Equal(t, 1, fx.msgs.count(conv.ConversationId, cst.User))
	assert.Equal(t, 1, fx.msgs.count(conv.ConversationId, cst.Assistant))
	assert.True(t, sink.closed)
}

func TestFileOnlyScenario(t *testing.T) {
	fx := newFixture(t)
	fx.chat.reply = "The report covers  three quarters of revenue."
	sink := &recordSink{}
	_, err := fx.run(&core_api.CompletionsReq{File: &core_api.File{Filename: "report.pdf", MimeType: "application/pdf", Base64Payload: "JVBERi0xLjQ="}}, sink)
	require.NoError(t, err)

	ts := sink.types()
	assert.Equal(t, chatevent.TypeStart, ts[0])
	assert.Equal(t, chatevent.TypeComplete, ts[len(ts)-1])
	assert.Equal(t, fx.chat.reply, sink.content())
	assert.Len(t, ts, 2+len(interaction.Tokenize(fx.chat.reply)))

	start := sink.events[0]
	assert.Equal(t, cst.DefaultTitle, start.Conversation.Title)
	require.NotNil(t, start.UserMessage.Attachment)
	assert.Equal(t, "report.pdf", start.UserMessage.Attachment.Filename)
}

func TestProviderFailure(t *testing.T) {
	fx := newFixture(t)
	fx.chat.err = errors.New("error, status code: 429, message: Rate limit exceeded for org-secret")
	sink := &recordSink{}
	_, err := fx.run(&core_api.CompletionsReq{Content: "hello"}, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, fx.chat.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fx.waits)
	assert.Equal(t, []string{chatevent.TypeStart, chatevent.TypeError}, sink.types())
	last := sink.events[1]
	assert.Contains(t, last.Message, "high demand")
	assert.NotContains(t, last.Message, "org-secret")

	cid, _ := bson.ObjectIDFromHex(sink.events[0].Conversation.Id)
	assert.Equal(t, 0, fx.msgs.count(cid, cst.Assistant))
	assert.Equal(t, 1, fx.msgs.count(cid, cst.User))
}

func TestOwnershipIsolation(t *testing.T) {
	fx := newFixture(t)
	other, _ := fx.convs.CreateConversation(context.Background(), bson.NewObjectID(), "theirs")

	opened, err := fx.run(&core_api.CompletionsReq{ConversationId: other.ConversationId.Hex(), Content: "hi"}, &recordSink{})
	assertCode(t, err, errno.ConversationNotFoundErrCode)
	assert.False(t, opened)
	assert.Empty(t, fx.msgs.msgs)

	_, err = fx.run(&core_api.CompletionsReq{ConversationId: bson.NewObjectID().Hex(), Content: "hi"}, &recordSink{})
	assertCode(t, err, errno.ConversationNotFoundErrCode)
}

func TestIdempotentResolution(t *testing.T) {
	fx := newFixture(t)
	sink := &recordSink{}
	_, err := fx.run(&core_api.CompletionsReq{Content: "first"}, sink)
	require.NoError(t, err)
	cid := sink.events[0].Conversation.Id

	for i := 0; i < 2; i++ {
		s := &recordSink{}
		_, err = fx.run(&core_api.CompletionsReq{ConversationId: cid, Content: "again"}, s)
		require.NoError(t, err)
		assert.Equal(t, cid, s.events[0].Conversation.Id)
	}
	assert.Equal(t, 1, fx.convs.creates)

	oid, _ := bson.ObjectIDFromHex(cid)
	assert.Equal(t, 3, fx.msgs.count(oid, cst.User))
	assert.Equal(t, 3, fx.msgs.count(oid, cst.Assistant))
}

func TestValidation(t *testing.T) {
	fx := newFixture(t, "forbidden")
	cases := map[string]*core_api.CompletionsReq{
		"blank":       {Content: " \n\t "},
		"tooLong":     {Content: strings.Repeat("字", 10001)},
		"paddedLong":  {Content: "hi" + strings.Repeat(" ", 9999)},
		"badId":       {ConversationId: "nope", Content: "hi"},
		"fileNoName":  {File: &core_api.File{MimeType: "text/plain", Base64Payload: "aGk="}},
		"fileNotBase": {File: &core_api.File{Filename: "a.txt", MimeType: "text/plain", Base64Payload: "%%%"}},
		"sensitive":   {Content: "this is FORBIDDEN"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			opened, err := fx.run(req, &recordSink{})
			assertCode(t, err, errno.ValidationErrCode)
			assert.False(t, opened)
		})
	}
	assert.Empty(t, fx.msgs.msgs)
	assert.Zero(t, fx.convs.creates)

	// 恰好等于上限
	_, err := fx.run(&core_api.CompletionsReq{Content: strings.Repeat("字", 10000)}, &recordSink{})
	assert.NoError(t, err)
}

func TestAuthenticationBeforePersistence(t *testing.T) {
	fx := newFixture(t)
	opened, err := fx.run(&core_api.CompletionsReq{Content: "hi", Token: "garbage"}, &recordSink{})
	assertCode(t, err, errno.UnAuthErrCode)
	assert.False(t, opened)
	assert.Zero(t, fx.convs.creates)
}

func TestDisconnectDuringStream(t *testing.T) {
	fx := newFixture(t)
	fx.chat.reply = "a b c d"
	sink := &recordSink{failAt: 2}
	_, err := fx.run(&core_api.CompletionsReq{Content: "hello"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{chatevent.TypeStart}, sink.types())
	cid, _ := bson.ObjectIDFromHex(sink.events[0].Conversation.Id)
	assert.Equal(t, 0, fx.msgs.count(cid, cst.Assistant))
}

func TestEventMessage(t *testing.T) {
	assert.Contains(t, EventMessage(errors.New("mongo: no reachable servers")), "technical difficulties")
	pe := &gateway.ProviderError{Op: gateway.OpFile, Attempts: 3, Err: errors.New("file completion timeout after 3m0s")}
	assert.Equal(t, gateway.UserMessage(pe.Err), EventMessage(errorx.Wrapf(pe, "flow")))
}

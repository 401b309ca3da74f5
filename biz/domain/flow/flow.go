package flow

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/memory/history"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/model"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/state"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	mmsg "github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrInterrupted 对端断开且模型回复未完整, 不持久化
var ErrInterrupted = errors.New("stream interrupted by peer")

const (
	LoadHistory      = "load-history"
	FileCompletion   = "file-completion"
	StreamCompletion = "stream-completion"
	StoreAssistant   = "store-assistant"
)

// History 历史消息的读写
type History interface {
	RetrieveMessage(ctx context.Context, cid bson.ObjectID) ([]*mmsg.Message, error)
	AddMessage(ctx context.Context, msg *mmsg.Message) error
}

// Provider 模型调用
type Provider interface {
	StreamCompletion(ctx context.Context, history []*schema.Message) (*schema.StreamReader[*schema.Message], error)
	FileCompletion(ctx context.Context, instruction, filename, mimeType, base64Payload string) (string, error)
}

// Flow 用户消息写入并发出start之后的流程: 加载历史, 按是否有附件调用模型, 持久化回复
type Flow struct {
	runnable      compose.Runnable[*state.RelayContext, *state.RelayContext]
	his           History
	provider      Provider
	conversations conversation.MongoMapper
	chunkDelay    time.Duration
	sleep         interaction.Sleep
}

func NewCompletionFlow(c *config.Config, his *history.HistoryManager, gw *model.Gateway, conversations conversation.MongoMapper) (*Flow, error) {
	return New(his, gw, conversations, c.Stream.ChunkDelay, nil)
}

// New sleep为nil时使用真实等待
func New(his History, provider Provider, conversations conversation.MongoMapper, chunkDelay time.Duration, sleep interaction.Sleep) (*Flow, error) {
	if sleep == nil {
		sleep = interaction.CtxSleep
	}
	f := &Flow{his: his, provider: provider, conversations: conversations, chunkDelay: chunkDelay, sleep: sleep}

	g := compose.NewGraph[*state.RelayContext, *state.RelayContext]()
	util.MustAddLambdaNode(g, LoadHistory, compose.InvokableLambda(f.loadHistory), compose.WithNodeName(LoadHistory))
	util.MustAddLambdaNode(g, FileCompletion, compose.InvokableLambda(f.fileCompletion), compose.WithNodeName(FileCompletion))
	util.MustAddLambdaNode(g, StreamCompletion, compose.InvokableLambda(f.streamCompletion), compose.WithNodeName(StreamCompletion))
	util.MustAddLambdaNode(g, StoreAssistant, compose.InvokableLambda(f.storeAssistant), compose.WithNodeName(StoreAssistant))

	util.MustAddEdge(g, compose.START, LoadHistory)
	util.MustAddGraphBranch(g, LoadHistory, compose.NewGraphBranch(f.route, map[string]bool{FileCompletion: true, StreamCompletion: true}))
	util.MustAddEdge(g, FileCompletion, StoreAssistant)
	util.MustAddEdge(g, StreamCompletion, StoreAssistant)
	util.MustAddEdge(g, StoreAssistant, compose.END)

	runnable, err := g.Compile(context.Background(), compose.WithGraphName("completion"))
	if err != nil {
		return nil, err
	}
	f.runnable = runnable
	return f, nil
}

// Run 执行流程, 返回第一个不可恢复的错误
// 图本身不随请求取消而中断, 模型调用使用r.Ctx, 已完整的回复在对端断开后仍能落库
func (f *Flow) Run(ctx context.Context, r *state.RelayContext) error {
	r.Ctx = ctx
	_, err := f.runnable.Invoke(context.WithoutCancel(ctx), r)
	if r.Err != nil {
		return r.Err
	}
	return err
}

func (f *Flow) route(_ context.Context, r *state.RelayContext) (string, error) {
	if r.HasAttach() {
		return FileCompletion, nil
	}
	return StreamCompletion, nil
}

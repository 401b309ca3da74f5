package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/brief"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/flow"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/model"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/msg"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/state"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/auth"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	mmsg "github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/metrics"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/storage"
	"github.com/xh-polaris/chatstream-core-api/pkg/ac"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Opener 打开事件流的传输层, 只在通过同步校验后调用一次
type Opener func() interaction.Sink

type ICompletionsService interface {
	Completions(ctx context.Context, req *core_api.CompletionsReq, open Opener) error
}

type CompletionsService struct {
	Config             *config.Config
	Auth               auth.Resolver
	ConversationMapper conversation.MongoMapper
	History            flow.History
	Archiver           *storage.Archiver
	Sensitive          *ac.Filter
	Validate           *validator.Validate
	Flow               *flow.Flow
}

var CompletionsServiceSet = wire.NewSet(
	wire.Struct(new(CompletionsService), "*"),
	wire.Bind(new(ICompletionsService), new(*CompletionsService)),
)

// Completions 处理一轮对话
// 打开事件流之前的失败作为同步错误返回; 之后的失败以error事件结束事件流, 返回nil
func (s *CompletionsService) Completions(ctx context.Context, req *core_api.CompletionsReq, open Opener) error {
	// 校验, 无副作用
	content, attach, err := s.validate(req)
	if err != nil {
		return err
	}

	// 鉴权
	uid, err := s.Auth.Resolve(ctx, req.Token)
	if err != nil {
		return err
	}

	// 确定对话
	conv, err := s.resolveConversation(ctx, uid, req.ConversationId, content)
	if err != nil {
		return err
	}

	// 持久化用户消息, 不重试
	um := msg.UserMMsg(conv.ConversationId, uid, content, s.archive(ctx, uid, conv.ConversationId, attach))
	if err = s.History.AddMessage(ctx, um); err != nil {
		logs.CtxErrorf(ctx, "[completions] [persist] user message err: %s", errorx.ErrorWithoutStack(err))
		return errorx.WrapByCode(err, errno.MessagePersistErrCode)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	metrics.SessionsInflight.Inc()
	defer metrics.SessionsInflight.Dec()

	// 打开事件流, 对端断开时取消模型调用
	em := interaction.NewEmitter(open(), s.Config.Stream.KeepAlive, cancel)
	defer func() {
		if err := em.Close(); err != nil {
			logs.CtxInfof(ctx, "[completions] close stream err: %s", errorx.ErrorWithoutStack(err))
		}
	}()
	r := &state.RelayContext{Conversation: conv, UserMessage: um, Content: content, Attach: attach, Emitter: em, Cancel: cancel}
	if err = em.Start(msg.MMsgToEvent(um), msg.ConversationToEvent(conv)); err != nil || em.Broken() {
		logs.CtxInfof(ctx, "[completions] stream closed before start, conversation=%s", conv.ConversationId.Hex())
		return nil
	}

	if err = s.Flow.Run(ctx, r); err != nil {
		s.fail(ctx, r, err)
		return nil
	}
	if err = em.Complete(msg.MMsgToEvent(r.AssistantMessage)); err != nil {
		logs.CtxErrorf(ctx, "[completions] emit complete err: %s", errorx.ErrorWithoutStack(err))
	}
	return nil
}

// validate 返回去除首尾空白的内容与附件
func (s *CompletionsService) validate(req *core_api.CompletionsReq) (string, *state.Attach, error) {
	if err := s.Validate.Struct(req); err != nil {
		return "", nil, validationError(err)
	}
	// 长度按原始输入计算
	if err := s.Validate.Var(req.Content, fmt.Sprintf("max=%d", s.Config.Stream.MaxContentLength)); err != nil {
		return "", nil, invalid(fmt.Sprintf("content exceeds %d characters", s.Config.Stream.MaxContentLength))
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.File == nil {
		return "", nil, invalid("content must not be empty")
	}
	if hit, _ := s.Sensitive.Search(content, true); hit {
		return "", nil, invalid("content contains restricted words")
	}
	if req.File == nil {
		return content, nil, nil
	}
	return content, &state.Attach{Filename: req.File.Filename, MimeType: req.File.MimeType, Base64Payload: req.File.Base64Payload}, nil
}

// resolveConversation 指定了对话时校验归属, 不存在与不属于当前用户不做区分; 否则新建对话
func (s *CompletionsService) resolveConversation(ctx context.Context, uid bson.ObjectID, cid, content string) (*conversation.Conversation, error) {
	if cid == "" {
		conv, err := s.ConversationMapper.CreateConversation(ctx, uid, brief.Derive(content))
		if err != nil {
			logs.CtxErrorf(ctx, "[completions] [conversation] create err: %s", errorx.ErrorWithoutStack(err))
			return nil, errorx.WrapByCode(err, errno.ConversationCreateErrCode)
		}
		return conv, nil
	}
	oid, err := bson.ObjectIDFromHex(cid)
	if err != nil {
		return nil, errorx.New(errno.ConversationNotFoundErrCode)
	}
	conv, err := s.ConversationMapper.FindOwned(ctx, oid, uid)
	if errors.Is(err, conversation.ErrNotFound) {
		return nil, errorx.WrapByCode(err, errno.ConversationNotFoundErrCode)
	} else if err != nil {
		logs.CtxErrorf(ctx, "[completions] [conversation] find %s err: %s", cid, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationGetErrCode)
	}
	return conv, nil
}

// archive 归档附件, 失败只记录日志, 附件信息仍写入用户消息
func (s *CompletionsService) archive(ctx context.Context, uid, cid bson.ObjectID, a *state.Attach) *mmsg.Attachment {
	if a == nil {
		return nil
	}
	attachment := &mmsg.Attachment{Filename: a.Filename, MimeType: a.MimeType}
	if !s.Archiver.Enabled() {
		return attachment
	}
	url, err := s.Archiver.Archive(ctx, uid, cid, a.Filename, a.MimeType, a.Base64Payload)
	if err != nil {
		err = errorx.WrapByCode(err, errno.AttachArchiveErrCode)
		logs.CtxWarnf(ctx, "[completions] [archive] %s err: %s", a.Filename, errorx.ErrorWithoutStack(err))
		return attachment
	}
	attachment.URL = url
	return attachment
}

// fail 以error事件结束事件流, 事件中只包含面向用户的提示
func (s *CompletionsService) fail(ctx context.Context, r *state.RelayContext, err error) {
	// 对端已断开时写入为空操作
	if errors.Is(err, flow.ErrInterrupted) {
		logs.CtxInfof(ctx, "[completions] conversation=%s interrupted", r.Conversation.ConversationId.Hex())
	} else {
		logs.CtxErrorf(ctx, "[completions] conversation=%s err: %s", r.Conversation.ConversationId.Hex(), errorx.ErrorWithoutStack(err))
	}
	if e := r.Emitter.Error(EventMessage(err)); e != nil {
		logs.CtxErrorf(ctx, "[completions] emit error err: %s", errorx.ErrorWithoutStack(e))
	}
}

// EventMessage 模型调用失败按分类给出提示, 其余错误使用通用提示
func EventMessage(err error) string {
	var pe *model.ProviderError
	if errors.As(err, &pe) {
		return model.UserMessage(pe.Err)
	}
	d, _ := code.Lookup(errno.CompletionsErrCode)
	return d.Message
}

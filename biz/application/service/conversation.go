package service

import (
	"context"
	"errors"

	"github.com/google/wire"
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/flow"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/memory/history"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/msg"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/auth"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type IConversationService interface {
	GetConversationMessages(ctx context.Context, token string, req *core_api.GetConversationMessagesReq) (*core_api.GetConversationMessagesResp, error)
	DeleteConversation(ctx context.Context, token string, req *core_api.DeleteConversationReq) (*core_api.DeleteConversationResp, error)
}

// Invalidator 删除对话后清理历史缓存
type Invalidator interface {
	Invalidate(ctx context.Context, cid bson.ObjectID)
}

type ConversationService struct {
	Auth               auth.Resolver
	ConversationMapper conversation.MongoMapper
	MessageMapper      message.MongoMapper
	History            flow.History
	Invalidator        Invalidator
}

var ConversationServiceSet = wire.NewSet(
	wire.Struct(new(ConversationService), "*"),
	wire.Bind(new(IConversationService), new(*ConversationService)),
)

// GetConversationMessages 按创建时间正序返回对话中的消息
func (s *ConversationService) GetConversationMessages(ctx context.Context, token string, req *core_api.GetConversationMessagesReq) (*core_api.GetConversationMessagesResp, error) {
	uid, err := s.Auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	conv, err := s.findOwned(ctx, uid, req.ConversationId)
	if err != nil {
		return nil, err
	}
	msgs, err := s.History.RetrieveMessage(ctx, conv.ConversationId)
	if err != nil {
		logs.CtxErrorf(ctx, "[conversation] [messages] retrieve %s err: %s", req.ConversationId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationGetErrCode)
	}
	events := make([]*chatevent.Message, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, msg.MMsgToEvent(m))
	}
	return &core_api.GetConversationMessagesResp{
		Resp:         util.Success(),
		Conversation: msg.ConversationToEvent(conv),
		Messages:     events,
	}, nil
}

// DeleteConversation 软删除对话及其消息
func (s *ConversationService) DeleteConversation(ctx context.Context, token string, req *core_api.DeleteConversationReq) (*core_api.DeleteConversationResp, error) {
	uid, err := s.Auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	conv, err := s.findOwned(ctx, uid, req.ConversationId)
	if err != nil {
		return nil, err
	}
	if err = s.ConversationMapper.DeleteConversation(ctx, conv.ConversationId, uid); err != nil {
		logs.CtxErrorf(ctx, "[conversation] [delete] %s err: %s", req.ConversationId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationDeleteErrCode)
	}
	if err = s.MessageMapper.DeleteByConversation(ctx, conv.ConversationId); err != nil {
		logs.CtxErrorf(ctx, "[conversation] [delete] messages of %s err: %s", req.ConversationId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationDeleteErrCode)
	}
	s.Invalidator.Invalidate(ctx, conv.ConversationId)
	return &core_api.DeleteConversationResp{Resp: util.Success()}, nil
}

func (s *ConversationService) findOwned(ctx context.Context, uid bson.ObjectID, cid string) (*conversation.Conversation, error) {
	oid, err := bson.ObjectIDFromHex(cid)
	if err != nil {
		return nil, invalid("invalid conversationId")
	}
	conv, err := s.ConversationMapper.FindOwned(ctx, oid, uid)
	if errors.Is(err, conversation.ErrNotFound) {
		return nil, errorx.WrapByCode(err, errno.ConversationNotFoundErrCode)
	} else if err != nil {
		logs.CtxErrorf(ctx, "[conversation] find %s err: %s", cid, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationGetErrCode)
	}
	return conv, nil
}

var _ Invalidator = (*history.HistoryManager)(nil)

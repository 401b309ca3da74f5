package core_api

import (
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/basic"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
)

type GetConversationMessagesReq struct {
	ConversationId string `query:"conversationId" json:"conversationId"`
}

type GetConversationMessagesResp struct {
	Resp         *basic.Response         `json:"resp"`
	Conversation *chatevent.Conversation `json:"conversation"`
	Messages     []*chatevent.Message    `json:"messages"`
}

type DeleteConversationReq struct {
	ConversationId string `query:"conversationId" json:"conversationId"`
}

type DeleteConversationResp struct {
	Resp *basic.Response `json:"resp"`
}

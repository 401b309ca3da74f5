package core_api

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/chatstream-core-api/biz/adaptor"
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/chatstream-core-api/provider"
)

// GetConversationMessages 对话中的全部消息
// @router /conversation/messages [GET]
func GetConversationMessages(ctx context.Context, c *app.RequestContext) {
	var req core_api.GetConversationMessagesReq
	if err := c.BindQuery(&req); err != nil {
		adaptor.PostError(ctx, c, bindError(err))
		return
	}
	resp, err := provider.Get().ConversationService.GetConversationMessages(ctx, adaptor.ExtractToken(c, false), &req)
	adaptor.PostProcess(ctx, c, &req, resp, err)
}

// DeleteConversation 删除对话及其消息
// @router /conversation [DELETE]
func DeleteConversation(ctx context.Context, c *app.RequestContext) {
	var req core_api.DeleteConversationReq
	if err := c.BindQuery(&req); err != nil {
		adaptor.PostError(ctx, c, bindError(err))
		return
	}
	resp, err := provider.Get().ConversationService.DeleteConversation(ctx, adaptor.ExtractToken(c, false), &req)
	adaptor.PostProcess(ctx, c, &req, resp, err)
}

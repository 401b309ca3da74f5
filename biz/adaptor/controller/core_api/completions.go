package core_api

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/chatstream-core-api/biz/adaptor"
	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction/ndjson"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction/sse"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/provider"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

// CompletionsSSE 通过query传参, 以SSE推送事件, 不支持附件
// @router /completions/stream [GET]
func CompletionsSSE(ctx context.Context, c *app.RequestContext) {
	var req core_api.CompletionsReq
	if err := c.BindQuery(&req); err != nil {
		adaptor.PostError(ctx, c, bindError(err))
		return
	}
	req.File = nil
	req.Token = adaptor.ExtractToken(c, true)

	var opened bool
	adaptor.PreStream(ctx, c)
	err := provider.Get().CompletionsService.Completions(ctx, &req, func() interaction.Sink {
		opened = true
		return sse.NewSSEStream(c)
	})
	adaptor.PostStream(ctx, c, logView(&req), opened, err)
}

// CompletionsNDJSON 通过json body传参, 以ndjson逐行推送事件
// @router /completions/stream [POST]
func CompletionsNDJSON(ctx context.Context, c *app.RequestContext) {
	var req core_api.CompletionsReq
	if err := c.BindJSON(&req); err != nil {
		adaptor.PostError(ctx, c, bindError(err))
		return
	}
	req.Token = adaptor.ExtractToken(c, false)

	var opened bool
	adaptor.PreStream(ctx, c)
	err := provider.Get().CompletionsService.Completions(ctx, &req, func() interaction.Sink {
		opened = true
		return ndjson.NewStream(c)
	})
	adaptor.PostStream(ctx, c, logView(&req), opened, err)
}

func bindError(err error) error {
	return errorx.WrapByCode(err, errno.ValidationErrCode, errorx.KV("reason", "malformed request"))
}

// logView 日志中不记录令牌与附件内容
func logView(req *core_api.CompletionsReq) *core_api.CompletionsReq {
	v := *req
	v.Token = ""
	if v.File != nil {
		f := *v.File
		f.Base64Payload = fmt.Sprintf("<%d bytes base64>", len(f.Base64Payload))
		v.File = &f
	}
	return &v
}

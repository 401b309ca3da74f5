package adaptor

// 流式响应相关

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/gopkg/util"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel/trace"
)

// PreStream 打开事件流前注入链路信息, 之后响应头不可再修改
func PreStream(ctx context.Context, c *app.RequestContext) {
	b3.New().Inject(ctx, &headerProvider{headers: &c.Response.Header})
}

// PostStream 流式接口的收尾, 事件流未打开时以同步错误响应
func PostStream(ctx context.Context, c *app.RequestContext, req any, opened bool, err error) {
	logs.CtxInfof(ctx, "[%s] req=%s, resp=stream(opened=%t), err=%s, trace=%s", c.Path(), util.JSONF(req), opened, errorx.ErrorWithoutStack(err), trace.SpanContextFromContext(ctx).TraceID().String())
	if err == nil {
		return
	}
	if opened {
		logs.CtxErrorf(ctx, "[%s] error after stream opened: %s", c.Path(), errorx.ErrorWithoutStack(err))
		return
	}
	b3.New().Inject(ctx, &headerProvider{headers: &c.Response.Header})
	PostError(ctx, c, err)
}

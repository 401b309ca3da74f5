package main

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/cors"
	prometheus "github.com/hertz-contrib/monitor-prometheus"
	"github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/metrics"
	"github.com/xh-polaris/chatstream-core-api/biz/router"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/provider"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
)

func Init() {
	provider.Init()
	otel.SetTextMapPropagator(b3.New())
	hlog.SetLevel(hlog.LevelInfo)
	logs.Info("所有模块初始化完成...")
}

func main() {
	Init()
	c := provider.Get().Config

	tracer, cfg := tracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(c.ListenOn),
		server.WithExitWaitTime(5*time.Second),
		server.WithTracer(prometheus.NewServerTracer(c.Metrics.Addr, c.Metrics.Path, prometheus.WithRegistry(metrics.Registry))),
		tracer,
	)
	h.Use(tracing.ServerMiddleware(cfg), recovery, cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{consts.MethodGet, consts.MethodPost, consts.MethodDelete, consts.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", cst.AuthorizationHeader},
		ExposeHeaders:    []string{"Content-Length", "X-B3-TraceId"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GeneratedRegister(h)
	h.Spin()
}

// recovery handler中的panic以500响应, 已开始的流式响应由连接断开结束
func recovery(ctx context.Context, c *app.RequestContext) {
	defer func() {
		if e := recover(); e != nil {
			logs.CtxErrorf(ctx, "[%s] panic: %v", c.Path(), e)
			c.AbortWithStatus(consts.StatusInternalServerError)
		}
	}()
	c.Next(ctx)
}

package adaptor

// HTTP 响应相关

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	hertz "github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
	"github.com/xh-polaris/gopkg/util"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel/trace"
)

type data struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"` // 仅开发模式
}

// PostProcess 处理http响应, resp要求指针或接口类型
// 在日志中记录本次调用详情, 同时向响应头中注入符合b3规范的链路信息, 主要是trace_id
// 最佳实践:
// - 在controller中调用业务处理, 处理结束后调用PostProcess
func PostProcess(ctx context.Context, c *app.RequestContext, req, resp any, err error) {
	b3.New().Inject(ctx, &headerProvider{headers: &c.Response.Header})
	logs.CtxInfof(ctx, "[%s] req=%s, resp=%s, err=%s, trace=%s", c.Path(), util.JSONF(req), util.JSONF(resp), errorx.ErrorWithoutStack(err), trace.SpanContextFromContext(ctx).TraceID().String())

	// 无错, 正常响应
	if err == nil {
		c.JSON(hertz.StatusOK, makeResponse(resp))
		return
	}
	PostError(ctx, c, err)
}

// PostError 处理同步错误, http状态码由错误码注册信息决定
func PostError(ctx context.Context, c *app.RequestContext, err error) {
	status, body := ErrorResponse(err, isDev())
	if status >= http.StatusInternalServerError {
		logs.CtxErrorf(ctx, "[%s] internal error, err=%s", c.Path(), errorx.ErrorWithoutStack(err))
	} else {
		logs.CtxWarnf(ctx, "[%s] [ErrorX] code=%d err=%s", c.Path(), body.Code, errorx.ErrorWithoutStack(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// ErrorResponse 非StatusError视为内部错误, dev为true时附带内部错误信息
func ErrorResponse(err error, dev bool) (int, *data) {
	se, ok := errorx.FromError(err)
	if !ok || se.Code() == 0 {
		se, _ = errorx.FromError(errorx.WrapByCode(err, errno.InternalErrCode))
	}
	status := http.StatusInternalServerError
	if d, ok := code.Lookup(se.Code()); ok && d.HTTPStatus != 0 {
		status = d.HTTPStatus
	}
	body := &data{Code: se.Code(), Msg: se.Msg()}
	if dev {
		body.Detail = errorx.ErrorWithoutStack(err)
	}
	return status, body
}

func isDev() bool {
	c := config.GetConfig()
	return c != nil && c.IsDev()
}

// makeResponse 通过反射构造嵌套格式的响应体
func makeResponse(resp any) map[string]any {
	if resp == nil {
		return nil
	}
	v := reflect.ValueOf(resp)
	if v.IsZero() || v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	// 构建返回数据
	v = v.Elem()
	r := v.FieldByName("Resp").Elem()
	response := map[string]any{"code": r.FieldByName("Code").Int(), "msg": r.FieldByName("Msg").String()}

	data := make(map[string]any)
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		if jsonTag := field.Tag.Get("json"); jsonTag != "" && field.Name != "Resp" {
			name, _, _ := strings.Cut(jsonTag, ",")
			if fieldValue := v.Field(i).Interface(); !reflect.ValueOf(fieldValue).IsZero() || !strings.Contains(jsonTag, "omitempty") {
				data[name] = fieldValue
			}
		}
	}
	if len(data) > 0 {
		response["data"] = data
	}
	return response
}

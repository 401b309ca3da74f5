package safego

import (
	"context"
	"runtime/debug"

	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
)

// Go 启动后台协程, panic只记录日志不扩散到进程
// onPanic 在恢复后依次调用, 供协程所属的会话收尾
func Go(ctx context.Context, name string, fn func(), onPanic ...func(v any)) {
	go func() {
		defer Recovery(ctx, name, onPanic...)
		fn()
	}()
}

// Recovery 必须直接被defer调用
func Recovery(ctx context.Context, name string, onPanic ...func(v any)) {
	v := recover()
	if v == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logs.CtxErrorf(ctx, "[safego] [%s] recovered panic: %v\nstacktrace:\n%s", name, v, debug.Stack())
	for _, f := range onPanic {
		f(v)
	}
}

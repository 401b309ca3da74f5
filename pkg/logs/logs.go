package logs

// 日志门面, 底层使用go-zero logx, 统一调用方式

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"
)

func Info(v ...any) {
	logx.Info(v...)
}

func Infof(format string, v ...any) {
	logx.Infof(format, v...)
}

func Warnf(format string, v ...any) {
	logx.Slowf(format, v...)
}

func Error(v ...any) {
	logx.Error(v...)
}

func Errorf(format string, v ...any) {
	logx.Errorf(format, v...)
}

// CondErrorf cond为true时记录错误日志
func CondErrorf(cond bool, format string, v ...any) {
	if cond {
		logx.Errorf(format, v...)
	}
}

func CtxInfof(ctx context.Context, format string, v ...any) {
	logx.WithContext(ctx).Infof(format, v...)
}

// CtxWarnf logx没有warn级别, 以slow级别输出
func CtxWarnf(ctx context.Context, format string, v ...any) {
	logx.WithContext(ctx).Slowf(format, v...)
}

func CtxErrorf(ctx context.Context, format string, v ...any) {
	logx.WithContext(ctx).Errorf(format, v...)
}

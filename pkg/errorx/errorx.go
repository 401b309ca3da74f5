package errorx

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
)

// StatusError 带错误码的业务错误
type StatusError interface {
	error
	Code() int32
	Msg() string
	Params() map[string]string
}

type Option func(e *statusError)

// KV 填充错误信息模板中的{key}
func KV(k, v string) Option {
	return func(e *statusError) {
		if e.params == nil {
			e.params = make(map[string]string)
		}
		e.params[k] = v
	}
}

type statusError struct {
	code   int32
	msg    string
	params map[string]string
	cause  error
	stack  string
}

func (e *statusError) Code() int32 { return e.code }

func (e *statusError) Msg() string { return e.msg }

func (e *statusError) Params() map[string]string { return e.params }

func (e *statusError) Unwrap() error { return e.cause }

func (e *statusError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("code=%d msg=%s", e.code, e.msg))
	if e.cause != nil {
		sb.WriteString(" cause=")
		sb.WriteString(ErrorWithoutStack(e.cause))
	}
	if e.stack != "" {
		sb.WriteString(stackSep)
		sb.WriteString(e.stack)
	}
	return sb.String()
}

const stackSep = "\nstack="

// New 根据错误码创建错误
func New(c int32, opts ...Option) error {
	return newStatusError(nil, c, opts...)
}

// WrapByCode 用错误码包装err, err为nil时返回nil
func WrapByCode(err error, c int32, opts ...Option) error {
	if err == nil {
		return nil
	}
	return newStatusError(err, c, opts...)
}

// Wrapf 附加上下文信息, 保留原有错误码
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrorWithoutStack 去掉堆栈的错误信息, 用于日志
func ErrorWithoutStack(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if i := strings.Index(s, stackSep); i >= 0 {
		return s[:i]
	}
	return s
}

// FromError 取出err链上第一个StatusError
func FromError(err error) (StatusError, bool) {
	var se StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func newStatusError(cause error, c int32, opts ...Option) *statusError {
	e := &statusError{code: c, cause: cause, stack: callers()}
	for _, opt := range opts {
		opt(e)
	}
	msg := "unknown error"
	if d, ok := code.Lookup(c); ok {
		msg = d.Message
	}
	for k, v := range e.params {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	e.msg = msg
	return e
}

func callers() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		sb.WriteString(fmt.Sprintf("%s:%d %s\n", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return sb.String()
}

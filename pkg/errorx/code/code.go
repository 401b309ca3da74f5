package code

import (
	"net/http"
	"sync"
)

// Definition 错误码定义
type Definition struct {
	Code            int32
	Message         string
	AffectStability bool // 是否影响服务稳定性, 影响时需要告警
	HTTPStatus      int  // 同步响应时使用的http状态码
}

type Option func(d *Definition)

var (
	mu          sync.RWMutex
	definitions = map[int32]*Definition{}
)

func WithAffectStability(affect bool) Option {
	return func(d *Definition) {
		d.AffectStability = affect
	}
}

func WithHTTPStatus(status int) Option {
	return func(d *Definition) {
		d.HTTPStatus = status
	}
}

// Register 注册错误码, 重复注册时后者覆盖前者
func Register(code int32, msg string, opts ...Option) {
	d := &Definition{Code: code, Message: msg, AffectStability: true, HTTPStatus: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(d)
	}
	mu.Lock()
	definitions[code] = d
	mu.Unlock()
}

// Lookup 查询错误码定义
func Lookup(code int32) (Definition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := definitions[code]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

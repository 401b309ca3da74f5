package adaptor

import (
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractToken 从Authorization头中取出令牌, allowQuery时允许通过token参数传递(EventSource无法设置请求头)
func ExtractToken(c *app.RequestContext, allowQuery bool) string {
	token := strings.TrimSpace(string(c.GetHeader(cst.AuthorizationHeader)))
	token = strings.TrimSpace(strings.TrimPrefix(token, cst.BearerPrefix))
	if token == "" && allowQuery {
		token = strings.TrimSpace(c.Query(cst.TokenQuery))
	}
	return token
}

var _ propagation.TextMapCarrier = &headerProvider{}

type headerProvider struct {
	headers *protocol.ResponseHeader
}

// Get a value from metadata by key
func (m *headerProvider) Get(key string) string {
	return m.headers.Get(key)
}

// Set a value to metadata by k/v
func (m *headerProvider) Set(key, value string) {
	m.headers.Set(key, value)
}

// Keys Iteratively get all keys of metadata
func (m *headerProvider) Keys() []string {
	out := make([]string, 0)

	m.headers.VisitAll(func(key, value []byte) {
		out = append(out, string(key))
	})

	return out
}

package httpx

import (
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// httpx/client 维护进程内共享的http客户端, 模型调用与对象存储复用同一个transport

var (
	client *HttpClient
	once   sync.Once
)

// HttpClient 是一个带链路追踪的 HTTP 客户端
type HttpClient struct {
	Client *http.Client
}

// NewHttpClient 单例模式维护一个client, 不设置整体超时, 流式响应的时长由调用方的ctx控制
func NewHttpClient() *HttpClient {
	once.Do(func() {
		client = &HttpClient{
			Client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		}
	})
	return client
}

func GetHttpClient() *HttpClient {
	return NewHttpClient()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry 业务指标与hertz服务指标共用, 由monitor-prometheus对外暴露
var Registry = prometheus.NewRegistry()

var (
	// EventsTotal 已写出的流事件数, 按事件类型区分
	EventsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "chatstream_events_total",
		Help: "Stream events written to clients, by event type.",
	}, []string{"type"})

	// ProviderAttempts 模型调用次数, 包含重试
	ProviderAttempts = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "chatstream_provider_attempts_total",
		Help: "Provider call attempts, by operation and outcome.",
	}, []string{"op", "outcome"})

	// SessionsInflight 进行中的流式会话
	SessionsInflight = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "chatstream_sessions_inflight",
		Help: "Stream sessions currently open.",
	})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

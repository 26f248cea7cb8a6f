package ethereum

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusError   = "error"
	statusSuccess = "success"
)

type Metrics struct {
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	once            sync.Once
)

func GetMetricsInstance(namespace string) *Metrics {
	once.Do(func() {
		metricsInstance = &Metrics{
			rpcCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_calls_total",
				Help:      "Total RPC calls made to the chain backend",
			}, []string{"network", "method", "status"}),
			rpcCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_call_duration_seconds",
				Help:      "Duration of RPC calls to the chain backend",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			}, []string{"network", "method", "status"}),
		}

		prometheus.MustRegister(metricsInstance.rpcCallsTotal, metricsInstance.rpcCallDuration)
	})

	return metricsInstance
}

func (m *Metrics) ObserveRPCCall(network, method string, start time.Time, err error) {
	if m == nil || m.rpcCallsTotal == nil {
		return
	}

	status := statusSuccess
	if err != nil {
		status = statusError
	}

	m.rpcCallDuration.WithLabelValues(network, method, status).Observe(time.Since(start).Seconds())
	m.rpcCallsTotal.WithLabelValues(network, method, status).Inc()
}

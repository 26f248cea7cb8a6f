package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidroute/deployer/pkg/common"
	"github.com/aidroute/deployer/pkg/config"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec,noctx // test URL
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestServerDisabled(t *testing.T) {
	s := New(logrus.New(), config.ServerConfig{}, nil)

	assert.False(t, s.Enabled())
	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, s.MetricsAddr())
	assert.Empty(t, s.HealthCheckAddr())
	require.NoError(t, s.Stop(context.Background()))
}

func TestServerHealthReflectsStatus(t *testing.T) {
	var failed atomic.Bool

	s := New(logrus.New(), config.ServerConfig{HealthCheckAddr: "127.0.0.1:0"}, func() (string, bool) {
		if failed.Load() {
			return "FAILED", false
		}

		return "DEPLOYING", true
	})

	require.True(t, s.Enabled())
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	code, body := get(t, "http://"+s.HealthCheckAddr()+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DEPLOYING", strings.TrimSpace(body))

	failed.Store(true)

	code, body = get(t, "http://"+s.HealthCheckAddr()+"/")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "FAILED", strings.TrimSpace(body))
}

func TestServerMetrics(t *testing.T) {
	common.DeploymentsTotal.WithLabelValues("server-test", "succeeded").Inc()

	s := New(logrus.New(), config.ServerConfig{MetricsAddr: "127.0.0.1:0"}, nil)
	require.NoError(t, s.Start(context.Background()))

	code, body := get(t, "http://"+s.MetricsAddr()+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `aidroute_deployer_deployments_total{network="server-test",outcome="succeeded"} 1`)

	require.NoError(t, s.Stop(context.Background()))

	_, err := http.Get("http://" + s.MetricsAddr() + "/metrics") //nolint:gosec,noctx // test URL
	assert.Error(t, err)
}

func TestServerBindFailure(t *testing.T) {
	first := New(logrus.New(), config.ServerConfig{MetricsAddr: "127.0.0.1:0"}, nil)
	require.NoError(t, first.Start(context.Background()))

	t.Cleanup(func() {
		_ = first.Stop(context.Background())
	})

	second := New(logrus.New(), config.ServerConfig{HealthCheckAddr: first.MetricsAddr()}, nil)

	err := second.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen on healthcheck address")
}

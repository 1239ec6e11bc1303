package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

func full(host string, latency time.Duration, failure model.FailureReason) model.ProbeResult {
	return model.ProbeResult{
		Config: &model.ProxyConfig{
			Protocol: model.ProtocolVLESS, Host: host, Port: 443,
			Identity: "u", DisplayName: host,
			RawURI: "vless://u@" + host + ":443#" + host,
		},
		Phase:   model.PhaseFull,
		Latency: latency,
		Failure: failure,
	}
}

func TestAggregateSortsByLatency(t *testing.T) {
	results := []model.ProbeResult{
		full("slow", 120*time.Millisecond, ""),
		full("fast", 80*time.Millisecond, ""),
	}

	working := Aggregate(results)
	require.Len(t, working, 2)
	require.Equal(t, "fast", working[0].Config.Host)
	require.Equal(t, "slow", working[1].Config.Host)
}

func TestAggregateStableTies(t *testing.T) {
	results := []model.ProbeResult{
		full("a", 100*time.Millisecond, ""),
		full("b", 100*time.Millisecond, ""),
		full("c", 50*time.Millisecond, ""),
		full("d", 100*time.Millisecond, ""),
	}

	working := Aggregate(results)
	hosts := make([]string, len(working))
	for i, r := range working {
		hosts[i] = r.Config.Host
	}
	require.Equal(t, []string{"c", "a", "b", "d"}, hosts)
}

func TestAggregateDropsFailuresAndUnvalidated(t *testing.T) {
	tcpOnly := full("tcp-only", 0, "")
	tcpOnly.Phase = model.PhaseTCP

	results := []model.ProbeResult{
		full("ok", 90*time.Millisecond, ""),
		full("rejected", 0, model.FailureValidationRejected),
		full("timed-out", 0, model.FailureValidationTimeout),
		tcpOnly,
	}

	working := Aggregate(results)
	require.Len(t, working, 1)
	require.Equal(t, "ok", working[0].Config.Host)
}

func TestRenderHeaderAndEntries(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	working := []model.ProbeResult{
		full("fast", 80*time.Millisecond, ""),
		full("slow", 120*time.Millisecond, ""),
	}

	out := Render(working, now)
	require.Contains(t, out, "# Generated: 2026-08-26 12:00:00")
	require.Contains(t, out, "# Working configs: 2")
	require.Contains(t, out, "# [VLESS] Latency: 80ms | fast")
	require.Contains(t, out, "vless://u@fast:443#fast")

	// Fastest first.
	require.Less(t,
		strings.Index(out, "fast"),
		strings.Index(out, "slow"))
}

func TestRenderEmptyRunStillHasHeader(t *testing.T) {
	out := Render(nil, time.Now())
	require.Contains(t, out, "# Working configs: 0")
}

func TestTop(t *testing.T) {
	working := []model.ProbeResult{
		full("a", 10*time.Millisecond, ""),
		full("b", 20*time.Millisecond, ""),
	}
	require.Len(t, Top(working, 10), 2)
	require.Len(t, Top(working, 1), 1)
	require.Equal(t, "a", Top(working, 1)[0].Config.Host)
}

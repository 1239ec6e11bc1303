package tester

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// Runner validates a config by running a throwaway sing-box instance with
// the config as its only outbound and timing a real HTTP request through
// it. One subprocess per invocation; the process dies with the context, so
// a hung endpoint cannot leak instances.
type Runner struct {
	BinPath string
	TestURL string
}

func NewRunner(binPath, testURL string) *Runner {
	return &Runner{BinPath: binPath, TestURL: testURL}
}

func (r *Runner) Validate(ctx context.Context, cfg *model.ProxyConfig) (time.Duration, error) {
	log := slog.With("target", cfg.Addr(), "protocol", cfg.Protocol)

	port, err := getFreePort()
	if err != nil {
		return 0, fmt.Errorf("local port allocation: %w", err)
	}

	configData, err := GenerateConfig(cfg, port)
	if err != nil {
		return 0, err
	}

	configPath := filepath.Join(os.TempDir(), fmt.Sprintf("sb_%d_%s.json", port, cfg.Host))
	if err := os.WriteFile(configPath, configData, 0644); err != nil {
		return 0, err
	}
	defer os.Remove(configPath)

	cmd := exec.CommandContext(ctx, r.BinPath, "run", "-c", configPath)
	if err := cmd.Start(); err != nil {
		log.Error("singbox_start_failed", "error", err)
		return 0, err
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	if !waitForPort(ctx, port, 2*time.Second) {
		log.Debug("singbox_bind_timeout", "local_port", port)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("sing-box never bound local port %d", port)
	}

	latency, err := r.measureLatency(ctx, port)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	return latency, nil
}

// measureLatency issues one GET through the local SOCKS5 inbound and times
// the full exchange. Any 2xx counts; captive-portal test URLs answer 204.
func (r *Runner) measureLatency(ctx context.Context, port int) (time.Duration, error) {
	dialer, err := xproxy.SOCKS5("tcp", fmt.Sprintf("127.0.0.1:%d", port), nil, &net.Dialer{})
	if err != nil {
		return 0, err
	}

	transport := &http.Transport{
		DisableKeepAlives: true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(xproxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.TestURL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return time.Since(start), nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForPort polls until the subprocess binds its inbound or the deadline
// passes. sing-box startup is fast but not instant.
func waitForPort(ctx context.Context, port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

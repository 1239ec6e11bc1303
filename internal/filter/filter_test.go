package filter

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

func tcpListener(t *testing.T) (net.Listener, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				io.Copy(io.Discard, c)
				c.Close()
			}(conn)
		}
	}()

	return l, l.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func ssConfig(host string, port int) *model.ProxyConfig {
	return &model.ProxyConfig{
		Protocol: model.ProtocolShadowsocks,
		Host:     host, Port: port,
		Identity: "aes-256-gcm:pw",
		RawURI:   "ss://x@" + net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

func TestRunPartitionsAliveAndDead(t *testing.T) {
	_, openPort := tcpListener(t)
	refused := closedPort(t)

	configs := []*model.ProxyConfig{
		ssConfig("127.0.0.1", openPort),
		ssConfig("127.0.0.1", refused),
		ssConfig("host-that-does-not-resolve.invalid", 443),
	}

	engine := NewEngine(2*time.Second, 8)
	results := engine.Run(context.Background(), configs)
	require.Len(t, results, len(configs))

	require.True(t, results[0].OK())
	require.Equal(t, model.PhaseTCP, results[0].Phase)
	require.Greater(t, results[0].ConnectTime, time.Duration(0))
	require.Zero(t, results[0].Latency, "precheck must not claim latency")

	require.Equal(t, model.FailureConnect, results[1].Failure)
	require.Equal(t, model.FailureDNS, results[2].Failure)
}

func TestRunPreservesInputOrder(t *testing.T) {
	_, openPort := tcpListener(t)

	var configs []*model.ProxyConfig
	for i := 0; i < 20; i++ {
		configs = append(configs, ssConfig("127.0.0.1", openPort))
	}

	engine := NewEngine(2*time.Second, 4)
	results := engine.Run(context.Background(), configs)
	require.Len(t, results, 20)
	for i, r := range results {
		require.Same(t, configs[i], r.Config)
	}
}

func TestRunTLSHandshakeFailure(t *testing.T) {
	// A plain TCP listener accepts the connect but cannot complete a TLS
	// handshake, so a TLS-mandatory protocol must fail with FailureTLS.
	_, openPort := tcpListener(t)

	cfg := &model.ProxyConfig{
		Protocol: model.ProtocolTrojan,
		Host:     "127.0.0.1", Port: openPort,
		Identity: "pw",
	}

	engine := NewEngine(time.Second, 1)
	results := engine.Run(context.Background(), []*model.ProxyConfig{cfg})
	require.Equal(t, model.FailureTLS, results[0].Failure)
}

func TestRunSkipsTLSForPlainProtocols(t *testing.T) {
	_, openPort := tcpListener(t)

	cfg := &model.ProxyConfig{
		Protocol: model.ProtocolVMess,
		Host:     "127.0.0.1", Port: openPort,
		Identity:    "id",
		ExtraParams: map[string]string{"tls": "none"},
	}

	engine := NewEngine(time.Second, 1)
	results := engine.Run(context.Background(), []*model.ProxyConfig{cfg})
	require.True(t, results[0].OK())
}

func TestRunFailureIsolation(t *testing.T) {
	// One dead config must not drag down its siblings.
	_, openPort := tcpListener(t)
	refused := closedPort(t)

	configs := []*model.ProxyConfig{
		ssConfig("127.0.0.1", refused),
		ssConfig("127.0.0.1", openPort),
		ssConfig("127.0.0.1", refused),
		ssConfig("127.0.0.1", openPort),
	}

	engine := NewEngine(time.Second, 2)
	results := engine.Run(context.Background(), configs)

	require.False(t, results[0].OK())
	require.True(t, results[1].OK())
	require.False(t, results[2].OK())
	require.True(t, results[3].OK())
}

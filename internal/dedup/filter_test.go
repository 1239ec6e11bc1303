package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
	"github.com/Twiddllo/v2ray-healthcheck/internal/parser"
)

func mk(proto model.Protocol, host string, port int, identity, name string) *model.ProxyConfig {
	return &model.ProxyConfig{
		Protocol: proto, Host: host, Port: port,
		Identity: identity, DisplayName: name,
	}
}

func TestDeduplicateFirstSeenWins(t *testing.T) {
	in := []*model.ProxyConfig{
		mk(model.ProtocolVLESS, "h1", 443, "u1", "first"),
		mk(model.ProtocolVLESS, "h2", 443, "u1", "other host"),
		mk(model.ProtocolVLESS, "h1", 443, "u1", "second"),
		mk(model.ProtocolTrojan, "h1", 443, "u1", "other protocol"),
	}

	out := Deduplicate(in)
	require.Len(t, out, 3)
	require.Equal(t, "first", out[0].DisplayName)
	require.Equal(t, "other host", out[1].DisplayName)
	require.Equal(t, "other protocol", out[2].DisplayName)
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []*model.ProxyConfig{
		mk(model.ProtocolShadowsocks, "s1", 8388, "aes-256-gcm:pw", "a"),
		mk(model.ProtocolShadowsocks, "s1", 8388, "aes-256-gcm:pw", "b"),
		mk(model.ProtocolShadowsocks, "s1", 8389, "aes-256-gcm:pw", "c"),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)
	require.Equal(t, once, twice)
	require.LessOrEqual(t, len(once), len(in))
}

func TestDeduplicateIgnoresTransportParams(t *testing.T) {
	// Same (protocol, host, port, identity), different query params: one
	// logical endpoint.
	lines := []string{
		"vless://u1@h1:443?type=tcp#A",
		"vless://u1@h1:443?type=ws#A-dup",
	}
	configs, failed := parser.ParseAll(lines)
	require.Zero(t, failed)
	require.Len(t, configs, 2)

	out := Deduplicate(configs)
	require.Len(t, out, 1)
	require.Equal(t, "A", out[0].DisplayName)
}

func TestDeduplicateEmpty(t *testing.T) {
	require.Empty(t, Deduplicate(nil))
}

func TestStreamingFilter(t *testing.T) {
	f := NewFilter()
	a := mk(model.ProtocolVMess, "vm1", 80, "id1", "")
	b := mk(model.ProtocolVMess, "vm1", 80, "id1", "same endpoint")

	require.False(t, f.Seen(a))
	require.True(t, f.Seen(b))
	require.False(t, f.Seen(mk(model.ProtocolVMess, "vm1", 81, "id1", "")))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequiresTLS(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProxyConfig
		want bool
	}{
		{"trojan always", ProxyConfig{Protocol: ProtocolTrojan}, true},
		{"vless tls", ProxyConfig{Protocol: ProtocolVLESS, ExtraParams: map[string]string{"security": "tls"}}, true},
		{"vless reality", ProxyConfig{Protocol: ProtocolVLESS, ExtraParams: map[string]string{"security": "reality"}}, true},
		{"vless plain", ProxyConfig{Protocol: ProtocolVLESS, ExtraParams: map[string]string{"security": "none"}}, false},
		{"vless no params", ProxyConfig{Protocol: ProtocolVLESS}, false},
		{"vmess tls", ProxyConfig{Protocol: ProtocolVMess, ExtraParams: map[string]string{"tls": "tls"}}, true},
		{"vmess plain", ProxyConfig{Protocol: ProtocolVMess}, false},
		{"shadowsocks never", ProxyConfig{Protocol: ProtocolShadowsocks}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cfg.RequiresTLS())
		})
	}
}

func TestSNIFallbackChain(t *testing.T) {
	cfg := ProxyConfig{Host: "server.example", ExtraParams: map[string]string{
		"sni":  "sni.example",
		"host": "host.example",
	}}
	require.Equal(t, "sni.example", cfg.SNI())

	delete(cfg.ExtraParams, "sni")
	require.Equal(t, "host.example", cfg.SNI())

	delete(cfg.ExtraParams, "host")
	require.Equal(t, "server.example", cfg.SNI())
}

func TestKeyIgnoresMetadata(t *testing.T) {
	a := ProxyConfig{
		Protocol: ProtocolVLESS, Host: "h1", Port: 443, Identity: "u1",
		DisplayName: "A", RawURI: "vless://u1@h1:443#A",
		ExtraParams: map[string]string{"type": "tcp"},
	}
	b := ProxyConfig{
		Protocol: ProtocolVLESS, Host: "h1", Port: 443, Identity: "u1",
		DisplayName: "B", RawURI: "vless://u1@h1:443?type=ws#B",
		ExtraParams: map[string]string{"type": "ws"},
	}
	require.Equal(t, a.Key(), b.Key())

	b.Identity = "u2"
	require.NotEqual(t, a.Key(), b.Key())
}

func TestAddr(t *testing.T) {
	cfg := ProxyConfig{Host: "h1", Port: 443}
	require.Equal(t, "h1:443", cfg.Addr())

	cfg = ProxyConfig{Host: "::1", Port: 443}
	require.Equal(t, "[::1]:443", cfg.Addr())
}

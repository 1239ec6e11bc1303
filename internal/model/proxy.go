package model

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Protocol string

const (
	ProtocolVLESS       Protocol = "vless"
	ProtocolVMess       Protocol = "vmess"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolShadowsocks Protocol = "ss"
)

// Known reports whether p is one of the four supported protocols.
func (p Protocol) Known() bool {
	switch p {
	case ProtocolVLESS, ProtocolVMess, ProtocolTrojan, ProtocolShadowsocks:
		return true
	}
	return false
}

// ProxyConfig is one normalized endpoint extracted from a subscription URI.
// Identity holds the UUID (vless/vmess), password (trojan) or
// "method:password" (shadowsocks). ExtraParams carries the protocol-specific
// transport fields (network type, security, sni, path, host header, ...) so
// the model does not need to know every protocol's shape.
type ProxyConfig struct {
	Protocol    Protocol          `json:"protocol"`
	Host        string            `json:"host"`
	Port        int               `json:"port"`
	Identity    string            `json:"identity"`
	ExtraParams map[string]string `json:"extra_params,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	RawURI      string            `json:"raw_uri"`
}

// DedupKey identifies a logical endpoint. Two configs sharing a key are the
// same server regardless of display name, raw formatting or transport
// params. Hostnames are compared as written; an IP and the hostname
// resolving to it stay distinct.
type DedupKey struct {
	Protocol Protocol
	Host     string
	Port     int
	Identity string
}

func (c *ProxyConfig) Key() DedupKey {
	return DedupKey{
		Protocol: c.Protocol,
		Host:     c.Host,
		Port:     c.Port,
		Identity: c.Identity,
	}
}

// Addr returns the dialable host:port string.
func (c *ProxyConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Param looks up an extra parameter, returning "" when absent.
func (c *ProxyConfig) Param(key string) string {
	if c.ExtraParams == nil {
		return ""
	}
	return c.ExtraParams[key]
}

// RequiresTLS reports whether the protocol's default transport mandates a
// TLS handshake: trojan always, vless/vmess only when the link says so,
// shadowsocks never.
func (c *ProxyConfig) RequiresTLS() bool {
	switch c.Protocol {
	case ProtocolTrojan:
		return true
	case ProtocolVLESS:
		switch c.Param("security") {
		case "tls", "xtls", "reality":
			return true
		}
	case ProtocolVMess:
		return c.Param("tls") == "tls"
	}
	return false
}

// SNI returns the server name for the TLS handshake, falling back
// sni -> host header -> server host. Many endpoints front through a CDN, so
// handshaking with the bare address would be rejected.
func (c *ProxyConfig) SNI() string {
	if sni := c.Param("sni"); sni != "" {
		return sni
	}
	if h := c.Param("host"); h != "" {
		return h
	}
	return c.Host
}

func (c *ProxyConfig) String() string {
	return fmt.Sprintf("%s://%s", c.Protocol, c.Addr())
}

type Phase string

const (
	PhaseTCP  Phase = "tcp"
	PhaseFull Phase = "full"
)

type FailureReason string

const (
	FailureDNS                FailureReason = "dns_failure"
	FailureConnect            FailureReason = "connect_failure"
	FailureTLS                FailureReason = "tls_failure"
	FailureValidationTimeout  FailureReason = "validation_timeout"
	FailureValidationRejected FailureReason = "validation_rejected"
)

// ProbeResult is the outcome of probing one config. The precheck creates it
// at PhaseTCP; the orchestrator promotes survivors to PhaseFull with either
// Latency or Failure filled in. A result is never mutated after its phase
// concludes.
type ProbeResult struct {
	Config  *ProxyConfig  `json:"config"`
	Phase   Phase         `json:"phase"`
	Latency time.Duration `json:"latency_ms,omitempty"`
	Failure FailureReason `json:"failure_reason,omitempty"`

	// ConnectTime is the TCP connect duration observed by the precheck.
	// Informational only, never reported as endpoint latency.
	ConnectTime time.Duration `json:"connect_time_ms,omitempty"`

	// Country is filled by GeoIP enrichment after validation.
	Country string `json:"country,omitempty"`
}

// OK reports whether the config passed every phase it reached.
func (r *ProbeResult) OK() bool {
	return r.Failure == ""
}

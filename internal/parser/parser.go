package parser

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// ParseLink turns one raw subscription line into a normalized config.
// Parsing is pure: no network, no global state. A failed line returns a
// *ParseError and never a partially filled config.
func ParseLink(raw string) (*model.ProxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, malformed("empty line")
	}

	scheme, _, found := strings.Cut(raw, "://")
	if !found {
		return nil, malformed("no scheme")
	}

	switch strings.ToLower(scheme) {
	case "vless":
		return parseUserInfoURI(raw, model.ProtocolVLESS)
	case "trojan":
		return parseUserInfoURI(raw, model.ProtocolTrojan)
	case "vmess":
		return parseVMess(raw)
	case "ss":
		return parseShadowsocks(raw)
	default:
		return nil, unsupported(scheme)
	}
}

// parseUserInfoURI handles the vless/trojan shape:
// scheme://identity@host:port?query#fragment
func parseUserInfoURI(raw string, proto model.Protocol) (*model.ProxyConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, malformed("%v", err)
	}

	identity := u.User.Username()
	host := u.Hostname()
	port, err := parsePort(u.Port())
	if identity == "" || host == "" || err != nil {
		return nil, malformed("missing identity, host or port")
	}

	extra := map[string]string{}
	for key, vals := range u.Query() {
		if len(vals) > 0 {
			extra[key] = vals[0]
		}
	}

	return &model.ProxyConfig{
		Protocol:    proto,
		Host:        host,
		Port:        port,
		Identity:    identity,
		ExtraParams: extra,
		DisplayName: decodeFragment(u.Fragment),
		RawURI:      raw,
	}, nil
}

// vmessPayload is the conventional v2rayN JSON body carried after vmess://.
type vmessPayload struct {
	Add  string          `json:"add"`
	Port json.RawMessage `json:"port"`
	ID   string          `json:"id"`
	PS   string          `json:"ps"`
	Net  string          `json:"net"`
	TLS  string          `json:"tls"`
	Host string          `json:"host"`
	Path string          `json:"path"`
	SNI  string          `json:"sni"`
	Aid  json.RawMessage `json:"aid"`
	Scy  string          `json:"scy"`
}

func parseVMess(raw string) (*model.ProxyConfig, error) {
	body := raw[len("vmess://"):]
	data, err := decodeBase64(body)
	if err != nil {
		return nil, malformed("vmess base64: %v", err)
	}

	var p vmessPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, malformed("vmess json: %v", err)
	}

	port, err := parsePort(rawJSONString(p.Port))
	if p.Add == "" || p.ID == "" || err != nil {
		return nil, malformed("vmess missing add, id or port")
	}

	extra := map[string]string{}
	putNonEmpty(extra, "net", p.Net)
	putNonEmpty(extra, "tls", p.TLS)
	putNonEmpty(extra, "host", p.Host)
	putNonEmpty(extra, "path", p.Path)
	putNonEmpty(extra, "sni", p.SNI)
	putNonEmpty(extra, "aid", rawJSONString(p.Aid))
	putNonEmpty(extra, "scy", p.Scy)

	return &model.ProxyConfig{
		Protocol:    model.ProtocolVMess,
		Host:        p.Add,
		Port:        port,
		Identity:    p.ID,
		ExtraParams: extra,
		DisplayName: p.PS,
		RawURI:      raw,
	}, nil
}

// parseShadowsocks handles both ss:// encodings, in fixed order:
// userinfo@host:port (userinfo base64 or plain "method:password") first,
// then the whole body base64-encoded. First successful decoding wins.
func parseShadowsocks(raw string) (*model.ProxyConfig, error) {
	body := raw[len("ss://"):]

	name := ""
	if idx := strings.Index(body, "#"); idx >= 0 {
		name = decodeFragment(body[idx+1:])
		body = body[:idx]
	}
	if idx := strings.Index(body, "?"); idx >= 0 {
		// Plugin options are irrelevant to liveness; drop them.
		body = body[:idx]
	}
	if body == "" {
		return nil, malformed("ss empty body")
	}

	if at := strings.LastIndex(body, "@"); at >= 0 {
		cfg, err := ssFromParts(body[:at], body[at+1:], name, raw)
		if err == nil {
			return cfg, nil
		}
	}

	decoded, err := decodeBase64(body)
	if err != nil {
		return nil, malformed("ss: neither userinfo nor base64 form decoded")
	}
	plain := string(decoded)
	at := strings.LastIndex(plain, "@")
	if at < 0 {
		return nil, malformed("ss decoded body missing @")
	}
	return ssFromParts(plain[:at], plain[at+1:], name, raw)
}

func ssFromParts(userinfo, hostport, name, raw string) (*model.ProxyConfig, error) {
	if !strings.Contains(userinfo, ":") {
		decoded, err := decodeBase64(userinfo)
		if err != nil || !strings.Contains(string(decoded), ":") {
			return nil, malformed("ss userinfo not method:password")
		}
		userinfo = string(decoded)
	} else if unescaped, err := url.QueryUnescape(userinfo); err == nil {
		userinfo = unescaped
	}

	method, password, _ := strings.Cut(userinfo, ":")
	if method == "" {
		return nil, malformed("ss empty method")
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, malformed("ss host:port: %v", err)
	}
	port, err := parsePort(portStr)
	if host == "" || err != nil {
		return nil, malformed("ss invalid host or port")
	}

	return &model.ProxyConfig{
		Protocol:    model.ProtocolShadowsocks,
		Host:        host,
		Port:        port,
		Identity:    method + ":" + password,
		ExtraParams: map[string]string{},
		DisplayName: name,
		RawURI:      raw,
	}, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, malformed("port %d out of range", port)
	}
	return port, nil
}

// decodeBase64 accepts std and URL alphabets, padded or not. Subscription
// lists are sloppy about padding, so missing '=' is tolerated.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

func decodeFragment(frag string) string {
	if decoded, err := url.QueryUnescape(frag); err == nil {
		return decoded
	}
	return frag
}

func putNonEmpty(m map[string]string, key, val string) {
	if val != "" {
		m[key] = val
	}
}

// rawJSONString unwraps a JSON value that may arrive as either a string or
// a number ("port": "443" and "port": 443 are both seen in the wild).
func rawJSONString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

package model

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FormatURI renders a config back into shareable link form. Round-tripping
// through the parser preserves (protocol, host, port, identity); raw
// formatting details (padding, param order) are not byte-preserved.
func (c *ProxyConfig) FormatURI() string {
	switch c.Protocol {
	case ProtocolVLESS, ProtocolTrojan:
		return c.formatUserInfoURI()
	case ProtocolVMess:
		return c.formatVMessURI()
	case ProtocolShadowsocks:
		return c.formatShadowsocksURI()
	}
	return c.RawURI
}

func (c *ProxyConfig) formatUserInfoURI() string {
	u := url.URL{
		Scheme:   string(c.Protocol),
		User:     url.User(c.Identity),
		Host:     c.Addr(),
		Fragment: c.DisplayName,
	}
	if len(c.ExtraParams) > 0 {
		keys := make([]string, 0, len(c.ExtraParams))
		for k := range c.ExtraParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q := url.Values{}
		for _, k := range keys {
			q.Set(k, c.ExtraParams[k])
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *ProxyConfig) formatVMessURI() string {
	payload := map[string]string{
		"v":    "2",
		"ps":   c.DisplayName,
		"add":  c.Host,
		"port": strconv.Itoa(c.Port),
		"id":   c.Identity,
	}
	for k, v := range c.ExtraParams {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return c.RawURI
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(data)
}

func (c *ProxyConfig) formatShadowsocksURI() string {
	userinfo := base64.URLEncoding.EncodeToString([]byte(c.Identity))
	var b strings.Builder
	b.WriteString("ss://")
	b.WriteString(userinfo)
	b.WriteByte('@')
	b.WriteString(c.Addr())
	if c.DisplayName != "" {
		b.WriteByte('#')
		b.WriteString(url.PathEscape(c.DisplayName))
	}
	return b.String()
}

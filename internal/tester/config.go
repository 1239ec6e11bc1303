package tester

import (
	"encoding/json"
	"fmt"

	"github.com/gvcgo/vpnparser/pkgs/outbound"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// singBoxConfig is the minimal document sing-box needs: a silent log, a
// local SOCKS inbound, and the outbound under test.
type singBoxConfig struct {
	Log       logConfig       `json:"log"`
	Inbounds  []inboundConfig `json:"inbounds"`
	Outbounds []interface{}   `json:"outbounds"`
}

type logConfig struct {
	Level    string `json:"level"`
	Disabled bool   `json:"disabled"`
}

type inboundConfig struct {
	Type       string `json:"type"`
	Tag        string `json:"tag"`
	Listen     string `json:"listen"`
	ListenPort int    `json:"listen_port"`
}

// GenerateConfig builds the sing-box JSON for one config under test. The
// outbound is regenerated from the raw link so sing-box sees every transport
// detail, including ones the normalized model does not carry.
func GenerateConfig(cfg *model.ProxyConfig, localPort int) ([]byte, error) {
	item := outbound.ParseRawUriToProxyItem(cfg.RawURI, outbound.SingBox)
	if item == nil {
		return nil, fmt.Errorf("outbound generation failed for %s", cfg)
	}

	var sbOutbound interface{}
	if err := json.Unmarshal([]byte(item.GetOutbound()), &sbOutbound); err != nil {
		return nil, fmt.Errorf("sing-box outbound json: %w", err)
	}

	doc := singBoxConfig{
		Log: logConfig{Level: "panic", Disabled: true},
		Inbounds: []inboundConfig{
			{
				Type:       "socks",
				Tag:        "in-local",
				Listen:     "127.0.0.1",
				ListenPort: localPort,
			},
		},
		Outbounds: []interface{}{
			sbOutbound,
			map[string]string{"type": "direct", "tag": "direct"},
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}

package parser

import (
	"log/slog"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// ParseAll runs every line through ParseLink. Bad lines never abort the
// batch; they are counted and dropped. Input order is preserved.
func ParseAll(lines []string) (configs []*model.ProxyConfig, failed int) {
	for _, line := range lines {
		cfg, err := ParseLink(line)
		if err != nil {
			failed++
			slog.Debug("parse_failed", "error", err)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, failed
}

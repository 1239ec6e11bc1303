package dedup

import (
	"sync"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// Deduplicate collapses configs sharing a DedupKey, keeping the first
// occurrence. Stable: survivors keep their relative input order, so the
// winning display metadata is deterministic for a given input order.
func Deduplicate(configs []*model.ProxyConfig) []*model.ProxyConfig {
	seen := make(map[model.DedupKey]struct{}, len(configs))
	out := make([]*model.ProxyConfig, 0, len(configs))

	for _, cfg := range configs {
		key := cfg.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cfg)
	}
	return out
}

// Filter is the streaming variant, safe for concurrent use. The source
// loaders emit lines from several subscriptions at once; Seen lets the
// driver drop repeats as they arrive instead of buffering everything first.
type Filter struct {
	mu   sync.Mutex
	seen map[model.DedupKey]struct{}
}

func NewFilter() *Filter {
	return &Filter{seen: make(map[model.DedupKey]struct{})}
}

// Seen records the config's key and reports whether it was already present.
func (f *Filter) Seen(cfg *model.ProxyConfig) bool {
	key := cfg.Key()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[key]; ok {
		return true
	}
	f.seen[key] = struct{}{}
	return false
}

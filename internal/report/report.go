package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// Stats counts survivors of each pipeline stage for the run summary.
type Stats struct {
	Fetched  int
	Parsed   int
	Deduped  int
	TCPAlive int
	Valid    int
}

func (s Stats) String() string {
	return fmt.Sprintf("fetched=%d parsed=%d deduped=%d tcp_alive=%d valid=%d",
		s.Fetched, s.Parsed, s.Deduped, s.TCPAlive, s.Valid)
}

// Aggregate filters results down to full-validation successes and sorts
// them ascending by latency. The sort is stable, so ties keep their
// original (input) relative order.
func Aggregate(results []model.ProbeResult) []model.ProbeResult {
	working := make([]model.ProbeResult, 0, len(results))
	for _, r := range results {
		if r.Phase == model.PhaseFull && r.OK() {
			working = append(working, r)
		}
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})
	return working
}

// Render produces the result-file text: a header block with the generation
// timestamp and working count, then one comment line plus the raw URI per
// endpoint, fastest first.
func Render(working []model.ProbeResult, now time.Time) string {
	var b strings.Builder

	b.WriteString("# V2Ray Config Checker Results\n")
	fmt.Fprintf(&b, "# Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "# Working configs: %d\n", len(working))
	b.WriteString("#" + strings.Repeat("=", 50) + "\n\n")

	for _, r := range working {
		fmt.Fprintf(&b, "# [%s] Latency: %dms | %s\n",
			strings.ToUpper(string(r.Config.Protocol)),
			r.Latency.Milliseconds(),
			r.Config.DisplayName)
		b.WriteString(r.Config.RawURI)
		b.WriteString("\n\n")
	}

	return b.String()
}

// Top returns the fastest n entries for the end-of-run summary log.
func Top(working []model.ProbeResult, n int) []model.ProbeResult {
	if len(working) < n {
		n = len(working)
	}
	return working[:n]
}

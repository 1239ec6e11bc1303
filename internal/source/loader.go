package source

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Fetcher pulls subscription lists over HTTP. Certificate verification is
// off: the mirrors hosting these lists are frequently misconfigured, and
// the payload is public text we validate line by line anyway.
type Fetcher struct {
	client  *http.Client
	retries int
}

func NewFetcher(timeout time.Duration, retries int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
				DisableKeepAlives: true,
			},
		},
		retries: retries,
	}
}

// FetchAll pulls every source, tolerating individual failures: a dead
// source is logged and skipped, never fatal. Lines keep source order.
func (f *Fetcher) FetchAll(urls []string) []string {
	var lines []string
	for _, u := range urls {
		fetched, err := f.Fetch(u)
		if err != nil {
			slog.Warn("source_fetch_failed", "url", u, "error", err)
			continue
		}
		slog.Info("source_fetched", "url", u, "lines", len(fetched))
		lines = append(lines, fetched...)
	}
	return lines
}

// Fetch retrieves one source, retrying transient failures. Retries live
// here at the fetch boundary only; probe phases never retry.
func (f *Fetcher) Fetch(url string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		lines, err := f.fetchOnce(url)
		if err == nil {
			return lines, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(url string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return SplitLines(decodeWrapped(body)), nil
}

// LoadFromFile reads a local subscription file, applying the same wrapped
// base64 handling as remote sources.
func LoadFromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(decodeWrapped(data)), nil
}

// SplitLines breaks a payload into trimmed, non-empty, non-comment lines.
// An empty payload is a valid zero-length result.
func SplitLines(payload string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// decodeWrapped unwraps lists published as one big base64 blob. If the
// payload already contains URI schemes it is passed through untouched.
func decodeWrapped(body []byte) string {
	payload := strings.TrimSpace(string(body))
	if strings.Contains(payload, "://") {
		return payload
	}

	compact := strings.Join(strings.Fields(payload), "")
	if pad := len(compact) % 4; pad != 0 {
		compact += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		if decoded, err = base64.URLEncoding.DecodeString(compact); err != nil {
			return payload
		}
	}
	if strings.Contains(string(decoded), "://") {
		return string(decoded)
	}
	return payload
}

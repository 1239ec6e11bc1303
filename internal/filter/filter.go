package filter

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// Engine runs the phase-1 "cheap check": DNS resolution, a TCP connect and,
// for TLS-mandatory protocols, a handshake probe. No protocol semantics, no
// latency claims; it only partitions configs into alive and dead.
type Engine struct {
	Timeout time.Duration
	Workers int

	// resolver is swappable for tests.
	resolver *net.Resolver
}

func NewEngine(timeout time.Duration, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		Timeout:  timeout,
		Workers:  workers,
		resolver: net.DefaultResolver,
	}
}

// Run prechecks every config with a bounded worker pool and returns one
// result per input, in input order. Each probe is isolated: a panic inside
// one worker is contained and demoted to a failed result for that config
// alone.
func (e *Engine) Run(ctx context.Context, configs []*model.ProxyConfig) []model.ProbeResult {
	results := make([]model.ProbeResult, len(configs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.Workers)

	for i, cfg := range configs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, cfg *model.ProxyConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("probe_panic", "target", cfg.Addr(), "panic", r)
					results[i] = model.ProbeResult{
						Config:  cfg,
						Phase:   model.PhaseTCP,
						Failure: model.FailureConnect,
					}
				}
			}()

			results[i] = e.probe(ctx, cfg)
		}(i, cfg)
	}

	wg.Wait()
	return results
}

// probe runs the check sequence for one config. Results are terminal: any
// failure here drops the config from phase 2, with no retry.
func (e *Engine) probe(ctx context.Context, cfg *model.ProxyConfig) model.ProbeResult {
	res := model.ProbeResult{Config: cfg, Phase: model.PhaseTCP}
	log := slog.With("target", cfg.Addr(), "protocol", cfg.Protocol)

	addr, err := e.resolve(ctx, cfg)
	if err != nil {
		log.Debug("dns_resolution_failed", "error", err)
		res.Failure = model.FailureDNS
		return res
	}

	start := time.Now()
	conn, err := e.dial(ctx, addr)
	if err != nil {
		log.Debug("tcp_connect_failed", "duration", time.Since(start))
		res.Failure = model.FailureConnect
		return res
	}
	res.ConnectTime = time.Since(start)

	if !cfg.RequiresTLS() {
		conn.Close()
		log.Debug("network_checks_passed", "duration", res.ConnectTime, "note", "tls_skipped")
		return res
	}

	if err := e.handshake(conn, cfg); err != nil {
		log.Debug("tls_handshake_failed", "sni", cfg.SNI(), "error", err)
		res.Failure = model.FailureTLS
		return res
	}

	log.Debug("network_checks_passed", "duration", time.Since(start))
	return res
}

// resolve maps the config host to a dialable address. Literal IPs skip the
// lookup so a dead resolver cannot fail them.
func (e *Engine) resolve(ctx context.Context, cfg *model.ProxyConfig) (string, error) {
	if ip := net.ParseIP(cfg.Host); ip != nil {
		return cfg.Addr(), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	addrs, err := e.resolver.LookupHost(lookupCtx, cfg.Host)
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = &net.DNSError{Err: "no addresses", Name: cfg.Host}
		}
		return "", err
	}
	return net.JoinHostPort(addrs[0], strconv.Itoa(cfg.Port)), nil
}

func (e *Engine) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: e.Timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// handshake upgrades the open TCP connection to TLS. Verification is
// skipped: self-signed certs and Reality endpoints are the norm here, and
// the question is whether the server speaks TLS at all, not whether a root
// CA trusts it. Takes ownership of conn.
func (e *Engine) handshake(conn net.Conn, cfg *model.ProxyConfig) error {
	defer conn.Close()

	conf := &tls.Config{
		InsecureSkipVerify: true,
		ServerName:         cfg.SNI(),
	}

	tlsConn := tls.Client(conn, conf)
	tlsConn.SetDeadline(time.Now().Add(e.Timeout))
	if err := tlsConn.Handshake(); err != nil {
		return err
	}

	probeAfterHandshake(tlsConn, cfg)
	return nil
}

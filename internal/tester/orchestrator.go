package tester

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
)

// Engine is the full-protocol validation capability. Implementations
// actually exercise the proxy (the sing-box Runner here) or fake it in
// tests. Validate must honor ctx cancellation and release any resources it
// spawned before returning.
type Engine interface {
	Validate(ctx context.Context, cfg *model.ProxyConfig) (time.Duration, error)
}

// Orchestrator fans the TCP-alive configs out to the Engine with a bounded
// pool. Phase-2 work spawns a subprocess per config, so its ceiling is
// independent from (and much lower than) the precheck's.
type Orchestrator struct {
	Engine      Engine
	Workers     int
	TaskTimeout time.Duration
}

func NewOrchestrator(engine Engine, workers int, taskTimeout time.Duration) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{Engine: engine, Workers: workers, TaskTimeout: taskTimeout}
}

// Run validates every alive config and returns one PhaseFull result per
// input, in input order. Completion order is arbitrary; each worker writes
// only its own slot, so results stay associated with their config without
// any post-hoc matching. A hung engine invocation burns one worker slot
// until its timeout and never blocks siblings.
func (o *Orchestrator) Run(ctx context.Context, alive []model.ProbeResult) []model.ProbeResult {
	results := make([]model.ProbeResult, len(alive))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.Workers)

	for i, prev := range alive {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, prev model.ProbeResult) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("validation_panic", "target", prev.Config.Addr(), "panic", r)
					results[i] = promote(prev, 0, model.FailureValidationRejected)
				}
			}()

			results[i] = o.validateOne(ctx, prev)
		}(i, prev)
	}

	wg.Wait()
	return results
}

func (o *Orchestrator) validateOne(ctx context.Context, prev model.ProbeResult) model.ProbeResult {
	cfg := prev.Config
	log := slog.With("target", cfg.Addr(), "protocol", cfg.Protocol)

	taskCtx, cancel := context.WithTimeout(ctx, o.TaskTimeout)
	defer cancel()

	latency, err := o.Engine.Validate(taskCtx, cfg)
	if err != nil {
		reason := model.FailureValidationRejected
		if errors.Is(err, context.DeadlineExceeded) || taskCtx.Err() != nil {
			reason = model.FailureValidationTimeout
		}
		log.Debug("validation_failed", "reason", reason, "error", err)
		return promote(prev, 0, reason)
	}

	log.Debug("validation_passed", "latency", latency)
	return promote(prev, latency, "")
}

// promote derives the PhaseFull result from the precheck result, carrying
// the informational connect time forward.
func promote(prev model.ProbeResult, latency time.Duration, failure model.FailureReason) model.ProbeResult {
	return model.ProbeResult{
		Config:      prev.Config,
		Phase:       model.PhaseFull,
		Latency:     latency,
		Failure:     failure,
		ConnectTime: prev.ConnectTime,
	}
}

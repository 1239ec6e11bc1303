package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Twiddllo/v2ray-healthcheck/internal/config"
	"github.com/Twiddllo/v2ray-healthcheck/internal/dedup"
	"github.com/Twiddllo/v2ray-healthcheck/internal/filter"
	"github.com/Twiddllo/v2ray-healthcheck/internal/geoip"
	"github.com/Twiddllo/v2ray-healthcheck/internal/logger"
	"github.com/Twiddllo/v2ray-healthcheck/internal/model"
	"github.com/Twiddllo/v2ray-healthcheck/internal/parser"
	"github.com/Twiddllo/v2ray-healthcheck/internal/report"
	"github.com/Twiddllo/v2ray-healthcheck/internal/sink"
	"github.com/Twiddllo/v2ray-healthcheck/internal/source"
	"github.com/Twiddllo/v2ray-healthcheck/internal/telegram"
	"github.com/Twiddllo/v2ray-healthcheck/internal/tester"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	ctx := context.Background()

	if _, err := os.Stat(cfg.SingBoxPath); os.IsNotExist(err) {
		slog.Error("sing-box binary not found", "path", cfg.SingBoxPath)
		os.Exit(1)
	}

	// Phase 0: fetch
	lines := loadLines(cfg)
	stats := report.Stats{Fetched: len(lines)}
	slog.Info("sources_loaded", "lines", len(lines))

	// Parse + dedupe. Bad lines are counted, never fatal; zero parseable
	// input still produces a (empty) report and a clean exit.
	configs, parseFailed := parser.ParseAll(lines)
	stats.Parsed = len(configs)
	slog.Info("parse_complete", "parsed", len(configs), "failed", parseFailed)

	configs = dedup.Deduplicate(configs)
	stats.Deduped = len(configs)
	slog.Info("dedup_complete", "unique", len(configs))

	if len(configs) == 0 {
		slog.Warn("no parseable configs, writing empty report")
		finish(ctx, cfg, stats, nil)
		return
	}

	// Phase 1: TCP precheck
	startPhase1 := time.Now()
	engine := filter.NewEngine(cfg.TcpTimeout, cfg.PrecheckWorkers)
	prechecked := engine.Run(ctx, configs)

	alive := make([]model.ProbeResult, 0, len(prechecked))
	for _, r := range prechecked {
		if r.OK() {
			alive = append(alive, r)
		}
	}
	stats.TCPAlive = len(alive)
	slog.Info("precheck_complete",
		"alive", len(alive),
		"total", len(prechecked),
		"duration", time.Since(startPhase1))

	// Phase 2: full validation through sing-box
	startPhase2 := time.Now()
	runner := tester.NewRunner(cfg.SingBoxPath, cfg.TestURL)
	orch := tester.NewOrchestrator(runner, cfg.ValidateWorkers, cfg.TestTimeout)
	validated := orch.Run(ctx, alive)

	working := report.Aggregate(validated)
	stats.Valid = len(working)
	slog.Info("validation_complete",
		"working", len(working),
		"duration", time.Since(startPhase2))

	enrichCountries(cfg.GeoIPPath, working)
	finish(ctx, cfg, stats, working)
}

func loadLines(cfg *config.Config) []string {
	if cfg.InputPath != "" {
		lines, err := source.LoadFromFile(cfg.InputPath)
		if err != nil {
			slog.Error("input_file_unreadable", "path", cfg.InputPath, "error", err)
			os.Exit(1)
		}
		return lines
	}

	urls, err := source.LoadSources(cfg.SourcesPath)
	if err != nil {
		slog.Error("sources_file_invalid", "path", cfg.SourcesPath, "error", err)
		os.Exit(1)
	}
	return source.NewFetcher(cfg.FetchTimeout, cfg.FetchRetries).FetchAll(urls)
}

func enrichCountries(path string, working []model.ProbeResult) {
	db, err := geoip.Open(path)
	if err != nil {
		slog.Debug("geoip_disabled", "error", err)
		return
	}
	defer db.Close()

	for i := range working {
		working[i].Country = db.Lookup(working[i].Config.Host)
	}
}

func finish(ctx context.Context, cfg *config.Config, stats report.Stats, working []model.ProbeResult) {
	content := report.Render(working, time.Now())
	if err := sink.WriteReport(cfg.OutputPath, content); err != nil {
		slog.Error("report_write_failed", "path", cfg.OutputPath, "error", err)
		os.Exit(1)
	}

	if cfg.JSONLPath != "" {
		writeJSONL(cfg.JSONLPath, working)
	}

	slog.Info("run_complete", "stats", stats.String(), "output", cfg.OutputPath)
	for i, r := range report.Top(working, 10) {
		slog.Info("top_config",
			"rank", i+1,
			"protocol", strings.ToUpper(string(r.Config.Protocol)),
			"latency_ms", r.Latency.Milliseconds(),
			"country", r.Country,
			"name", r.Config.DisplayName)
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err := notifier.SendSummary(ctx, stats, working); err != nil {
			slog.Warn("telegram_notify_failed", "error", err)
		}
	}
}

func writeJSONL(path string, working []model.ProbeResult) {
	w, err := sink.NewJSONL(path)
	if err != nil {
		slog.Warn("jsonl_open_failed", "path", path, "error", err)
		return
	}
	defer w.Close()

	for _, r := range working {
		if err := w.Write(r); err != nil {
			slog.Warn("jsonl_write_failed", "error", err)
			return
		}
	}
}

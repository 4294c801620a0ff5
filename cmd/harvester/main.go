package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"proxy_harvester/internal/shared/config"
	"proxy_harvester/internal/shared/logger"
	manager "proxy_harvester/proxypool"
	"proxy_harvester/proxypool/model"
	"proxy_harvester/proxypool/progress"
	"proxy_harvester/proxypool/validator"
)

const exitInterrupted = 130

func main() {
	// 1. 加载配置：默认值 + harvester.ini + 环境变量
	cfg, err := config.Load(config.DefaultFileName)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config '%s': %v\n", config.DefaultFileName, err)
		os.Exit(1)
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !interactive {
		cfg.LogConf.NoColor = true
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str("probe_url", cfg.CheckConf.ProbeURL).
		Int("concurrency", cfg.CheckConf.Concurrency).
		Dur("timeout", cfg.CheckConf.Timeout()).
		Str("results", cfg.OutputConf.Dir).
		Msg("Harvester starting.")

	out := console{out: colorable.NewColorableStdout(), color: interactive}

	var reporter progress.Reporter
	if interactive {
		reporter = progress.NewBar(out.out, cfg.OutputConf.BarWidth, true)
	} else {
		reporter = progress.NewLogReporter(cfg.OutputConf.LogStep)
	}

	prober, err := validator.NewSocksProber(cfg.CheckConf.ProbeURL, cfg.CheckConf.Timeout(), cfg.CheckConf.UserAgents, cfg.CheckConf.TLSFingerprint)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create prober")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second interrupt falls through to the default handler and kills the process.
		<-ctx.Done()
		stop()
	}()

	// 3. 运行抓取与验证
	h := manager.NewHarvester(cfg, prober, reporter)
	os.Exit(run(ctx, h, out))
}

func run(ctx context.Context, h *manager.Harvester, out console) int {
	out.banner()

	col := h.Collect(ctx)
	if ctx.Err() != nil {
		logger.Warn().Msg("Interrupted while fetching proxy lists.")
		out.printf(colorYellow, "\n[!] Interrupted by user.\n")
		return exitInterrupted
	}

	total := len(col.Candidates)
	out.printf(colorYellow, "Found SOCKS4: %d, SOCKS5: %d. Total: %d\n",
		col.Counts[model.Socks4], col.Counts[model.Socks5], total)

	summary, err := h.Verify(ctx, col.Candidates)
	if errors.Is(err, validator.ErrInterrupted) {
		logger.Warn().Int("done", summary.Stats.Done).Int("total", summary.Stats.Total).Msg("Interrupted during verification.")
		out.printf(colorYellow, "\n[!] Interrupted by user.\n")
		return exitInterrupted
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Harvest failed")
	}

	if total == 0 {
		out.printf(colorRed, "No proxies to check. Check the sources.\n")
		return 0
	}

	fmt.Fprintln(out.out)
	out.printf(colorCyan, "[+] Scan complete.\n")
	out.printf(colorGreen, "Working: %d", summary.Stats.Good)
	fmt.Fprint(out.out, " | ")
	out.printf(colorRed, "Not working: %d\n", summary.Stats.Bad)
	fmt.Fprintf(out.out, "Files in: %s\n", summary.ResultsDir)
	return 0
}

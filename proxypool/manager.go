package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"proxy_harvester/internal/shared/logger"
	"proxy_harvester/internal/shared/types"
	"proxy_harvester/proxypool/model"
	"proxy_harvester/proxypool/progress"
	"proxy_harvester/proxypool/scraper"
	"proxy_harvester/proxypool/storage"
	"proxy_harvester/proxypool/validator"
)

// Collection 是抓取与归一化之后的候选集合。
type Collection struct {
	Candidates []model.Candidate
	Counts     map[model.Protocol]int
}

// Summary describes a finished (or interrupted) verification run.
type Summary struct {
	Stats      model.Stats
	ResultsDir string
}

// Harvester 是整个流程的总控制器：抓取 -> 归一化 -> 验证 -> 汇总。
type Harvester struct {
	cfg      *types.Config
	sources  map[model.Protocol][]scraper.Source
	prober   validator.Prober
	reporter progress.Reporter
	runID    string
}

// NewHarvester wires list sources from cfg; prober and reporter are supplied by the caller.
func NewHarvester(cfg *types.Config, prober validator.Prober, reporter progress.Reporter) *Harvester {
	h := &Harvester{
		cfg:      cfg,
		sources:  make(map[model.Protocol][]scraper.Source),
		prober:   prober,
		reporter: reporter,
		runID:    uuid.NewString(),
	}
	for _, u := range cfg.SourcesConf.Socks4 {
		h.AddSource(model.Socks4, scraper.NewListSource(u, cfg.SourcesConf.FetchTimeout(), cfg.CheckConf.UserAgents))
	}
	for _, u := range cfg.SourcesConf.Socks5 {
		h.AddSource(model.Socks5, scraper.NewListSource(u, cfg.SourcesConf.FetchTimeout(), cfg.CheckConf.UserAgents))
	}
	return h
}

// AddSource 添加一个抓取源到指定协议类别。
func (h *Harvester) AddSource(p model.Protocol, s scraper.Source) {
	h.sources[p] = append(h.sources[p], s)
}

// ResetSources drops every configured source.
func (h *Harvester) ResetSources() {
	h.sources = make(map[model.Protocol][]scraper.Source)
}

func (h *Harvester) log() zerolog.Logger {
	l := logger.WithComponent("Harvester/Manager")
	return l.With().Str("run_id", h.runID).Logger()
}

// Collect fetches every protocol class concurrently and normalizes the results.
// Candidates are ordered socks4 first, then socks5.
func (h *Harvester) Collect(ctx context.Context) Collection {
	l := h.log()
	l.Info().Msg("Fetching proxy lists...")

	var wg sync.WaitGroup
	var mu sync.Mutex
	normalized := make(map[model.Protocol][]model.Candidate, len(model.Protocols))

	for _, p := range model.Protocols {
		wg.Add(1)
		go func(protocol model.Protocol) {
			defer wg.Done()
			lines := scraper.Gather(ctx, h.sources[protocol])
			candidates := scraper.Normalize(protocol, lines)

			mu.Lock()
			normalized[protocol] = candidates
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	col := Collection{Counts: make(map[model.Protocol]int, len(model.Protocols))}
	for _, p := range model.Protocols {
		col.Candidates = append(col.Candidates, normalized[p]...)
		col.Counts[p] = len(normalized[p])
	}

	l.Info().
		Int("socks4", col.Counts[model.Socks4]).
		Int("socks5", col.Counts[model.Socks5]).
		Msg("Candidates collected.")
	return col
}

// Verify truncates the result files and runs the verification engine over candidates.
// With no candidates it returns right after preparing the (empty) result files.
func (h *Harvester) Verify(ctx context.Context, candidates []model.Candidate) (Summary, error) {
	l := h.log()

	store, err := storage.Open(h.cfg.OutputConf.Dir)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			l.Error().Err(cerr).Msg("Failed to close result files.")
		}
	}()

	summary := Summary{
		Stats:      model.Stats{Total: len(candidates)},
		ResultsDir: store.Path(),
	}
	if len(candidates) == 0 {
		l.Info().Msg("No candidates to verify.")
		return summary, nil
	}

	engine := validator.New(h.prober, store, h.reporter, validator.Options{
		Concurrency: h.cfg.CheckConf.Concurrency,
		Timeout:     h.cfg.CheckConf.Timeout(),
	})

	h.reporter.Render(summary.Stats)
	stats, err := engine.Run(ctx, candidates)
	summary.Stats = stats
	if err != nil {
		return summary, fmt.Errorf("verification stopped after %d of %d: %w", stats.Done, stats.Total, err)
	}

	// The progress line is still open on stdout here, so keep this out of the default level.
	l.Debug().
		Int("good", stats.Good).
		Int("bad", stats.Bad).
		Str("path", summary.ResultsDir).
		Msg("Harvest finished.")
	return summary, nil
}

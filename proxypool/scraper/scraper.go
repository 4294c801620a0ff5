package scraper

import (
	"context"

	"proxy_harvester/internal/shared/logger"
)

// Source 接口定义了从一个代理列表源抓取原始文本行的行为。
type Source interface {
	// Fetch returns the non-empty, trimmed lines of the list.
	// Any transport error or non-200 status is returned as an error.
	Fetch(ctx context.Context) ([]string, error)

	// Name 返回抓取源的名称，用于日志记录。
	Name() string
}

// Gather fetches every source in order and concatenates the lines of those that succeed.
// A failing source is logged and skipped; an empty result is valid.
func Gather(ctx context.Context, sources []Source) []string {
	l := logger.WithComponent("Harvester/Scraper")

	var lines []string
	for _, s := range sources {
		if ctx.Err() != nil {
			l.Warn().Str("source", s.Name()).Msg("Context cancelled, skipping remaining sources.")
			break
		}
		got, err := s.Fetch(ctx)
		if err != nil {
			l.Warn().Err(err).Str("source", s.Name()).Msg("Source failed, skipping.")
			continue
		}
		l.Info().Int("count", len(got)).Str("source", s.Name()).Msg("Source fetched.")
		lines = append(lines, got...)
	}
	return lines
}

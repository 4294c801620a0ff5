package progress

import (
	"fmt"
	"io"
	"strings"

	"proxy_harvester/internal/shared/logger"
	"proxy_harvester/proxypool/model"
)

// DefaultWidth is the number of cells in the progress bar.
const DefaultWidth = 30

const (
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

// Reporter renders the aggregate stats after every accounted outcome.
// Render is called while the engine holds its accounting lock and must not block.
type Reporter interface {
	Render(s model.Stats)
}

// Percent returns floor(done*100/total), or 0 when total is 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

// Filled returns the number of filled cells for a bar of width at percent.
func Filled(width, percent int) int {
	return width * percent / 100
}

// Bar draws a single overwritable line: "\r[####------]  40% | GOOD: 2 BAD: 2 TOTAL: 4/10".
type Bar struct {
	out   io.Writer
	width int
	color bool
}

func NewBar(out io.Writer, width int, color bool) *Bar {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Bar{out: out, width: width, color: color}
}

func (b *Bar) Render(s model.Stats) {
	fmt.Fprint(b.out, b.Line(s))
}

// Line builds the text Render writes, including the leading carriage return.
func (b *Bar) Line(s model.Stats) string {
	percent := Percent(s.Done, s.Total)
	filled := Filled(b.width, percent)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", b.width-filled)

	if !b.color {
		return fmt.Sprintf("\r[%s] %3d%% | GOOD: %d BAD: %d TOTAL: %d/%d", bar, percent, s.Good, s.Bad, s.Done, s.Total)
	}
	return fmt.Sprintf("\r%s[%s] %3d%% | %sGOOD: %d %sBAD: %d %sTOTAL: %d/%d%s",
		colorYellow, bar, percent,
		colorGreen, s.Good,
		colorRed, s.Bad,
		colorCyan, s.Done, s.Total, colorReset)
}

// LogReporter is the non-interactive reporter: one log line each time the percentage
// reaches the next multiple of step, plus one at completion.
type LogReporter struct {
	step int
	next int
}

func NewLogReporter(step int) *LogReporter {
	if step <= 0 {
		step = 10
	}
	return &LogReporter{step: step}
}

func (r *LogReporter) Render(s model.Stats) {
	percent := Percent(s.Done, s.Total)
	finished := s.Total > 0 && s.Done == s.Total
	if percent < r.next && !finished {
		return
	}
	if finished && r.next > 100 {
		return
	}
	for r.next <= percent {
		r.next += r.step
	}
	if finished {
		r.next = 101
	}

	l := logger.WithComponent("Harvester/Progress")
	l.Info().
		Int("percent", percent).
		Int("good", s.Good).
		Int("bad", s.Bad).
		Int("done", s.Done).
		Int("total", s.Total).
		Msg("Verification progress")
}

package validator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"proxy_harvester/internal/shared/logger"
	"proxy_harvester/proxypool/model"
	"proxy_harvester/proxypool/progress"
	"proxy_harvester/proxypool/storage"
)

// ErrInterrupted is returned by Run when ctx was cancelled before every candidate was admitted.
var ErrInterrupted = errors.New("verification interrupted")

// Prober performs one reachability check through a candidate. A nil error means good.
type Prober interface {
	Probe(ctx context.Context, c model.Candidate) error
}

// Options tunes the engine.
type Options struct {
	Concurrency int           // maximum probes in flight, at least 1
	Timeout     time.Duration // per-probe deadline
}

// Engine probes every candidate once through a fixed pool of workers and accounts each
// outcome (result file, counters, progress) under a single lock.
type Engine struct {
	prober   Prober
	sink     storage.Sink
	reporter progress.Reporter
	opts     Options

	mu    sync.Mutex
	stats model.Stats
}

func New(prober Prober, sink storage.Sink, reporter progress.Reporter, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Engine{
		prober:   prober,
		sink:     sink,
		reporter: reporter,
		opts:     opts,
	}
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() model.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Run verifies candidates and blocks until every admitted candidate has been accounted.
// Cancelling ctx stops admission; probes already running finish under their own timeout.
// A sink error also stops admission and is returned.
func (e *Engine) Run(ctx context.Context, candidates []model.Candidate) (model.Stats, error) {
	l := logger.WithComponent("Harvester/Validator")

	e.mu.Lock()
	e.stats = model.Stats{Total: len(candidates)}
	e.mu.Unlock()

	if len(candidates) == 0 {
		return e.Stats(), nil
	}

	workers := e.opts.Concurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}

	l.Debug().Int("count", len(candidates)).Int("workers", workers).Dur("timeout", e.opts.Timeout).Msg("Starting verification...")

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan model.Candidate)

	g.Go(func() error {
		defer close(queue)
		for _, c := range candidates {
			// select picks randomly among ready cases, so check first.
			if gctx.Err() != nil {
				return nil
			}
			select {
			case queue <- c:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	// Probes must not be failed by an interrupt, only by their own deadline.
	probeCtx := context.WithoutCancel(ctx)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for c := range queue {
				if gctx.Err() != nil {
					continue
				}
				outcome := e.probe(probeCtx, c)
				if err := e.account(outcome); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	stats := e.Stats()
	if err != nil {
		return stats, err
	}
	if ctx.Err() != nil && stats.Done < stats.Total {
		l.Warn().Int("done", stats.Done).Int("total", stats.Total).Msg("Verification interrupted.")
		return stats, ErrInterrupted
	}

	l.Debug().Int("good", stats.Good).Int("bad", stats.Bad).Msg("Verification finished.")
	return stats, nil
}

func (e *Engine) probe(ctx context.Context, c model.Candidate) model.Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	err := e.prober.Probe(ctx, c)
	if err == nil {
		// A prober that ignores ctx still loses once the deadline passed.
		err = ctx.Err()
	}
	if err != nil {
		return model.Outcome{Candidate: c, Verdict: model.Bad, Err: err}
	}
	return model.Outcome{Candidate: c, Verdict: model.Good}
}

// account is the per-outcome critical section: result file, counters, progress.
func (e *Engine) account(o model.Outcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.sink.Append(o.Candidate, o.Verdict); err != nil {
		return fmt.Errorf("failed to record %s: %w", o.Candidate, err)
	}
	if o.Verdict == model.Good {
		e.stats.Good++
	} else {
		e.stats.Bad++
	}
	e.stats.Done++
	e.reporter.Render(e.stats)

	if o.Err != nil {
		l := logger.WithComponent("Harvester/Validator")
		l.Debug().Err(o.Err).Str("proxy", o.Candidate.String()).Msg("Probe failed.")
	}
	return nil
}

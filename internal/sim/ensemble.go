package sim

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs one starting checkpoint under several configurations
// concurrently, one simulator per configuration.
type Ensemble struct {
	start   *Checkpoint
	metrics func() []Metric
	log     zerolog.Logger
}

// NewEnsemble prepares runs from start. newMetrics, if set, is called once
// per run so metric state is never shared between goroutines.
func NewEnsemble(start *Checkpoint, newMetrics func() []Metric, log zerolog.Logger) *Ensemble {
	return &Ensemble{start: start, metrics: newMetrics, log: log}
}

// Run restores the start checkpoint once per config and runs each for steps
// steps. The first failing run cancels the others.
func (e *Ensemble) Run(ctx context.Context, cfgs []Config, steps int) ([]*Result, error) {
	if err := e.start.Validate(); err != nil {
		return nil, err
	}

	results := make([]*Result, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			s, err := New(cfg, WithLogger(e.log.With().Int("run", i).Logger()))
			if err != nil {
				return err
			}
			cp := *e.start
			cp.Config = cfg
			if err := s.RestoreCheckpoint(&cp); err != nil {
				return err
			}
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}

			results[i], err = s.Run(ctx, steps)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

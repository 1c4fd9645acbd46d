// Package schedule triggers pipeline jobs on cron specs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/usecase/job"
)

// Runner executes a job shape. Overlap handling belongs to the runner.
type Runner interface {
	Run(ctx context.Context, kind job.Kind) (*job.Report, error)
}

// Specs maps each job shape to a five-field cron spec. Empty specs are not scheduled.
type Specs map[job.Kind]string

// Scheduler owns the cron loop.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	entries map[job.Kind]cron.EntryID
	ctx     context.Context
	logger  *zap.Logger
}

// New creates a scheduler in the given location (UTC when nil).
func New(runner Runner, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		runner:  runner,
		entries: make(map[job.Kind]cron.EntryID),
		ctx:     context.Background(),
		logger:  logger,
	}
}

// AddAll registers every non-empty spec.
func (s *Scheduler) AddAll(specs Specs) error {
	for _, kind := range []job.Kind{job.KindIncremental, job.KindCatchUp, job.KindFull} {
		spec := specs[kind]
		if spec == "" {
			s.logger.Info("Job not scheduled", zap.String("job", string(kind)))
			continue
		}
		if err := s.Add(kind, spec); err != nil {
			return err
		}
	}
	return nil
}

// Add schedules one job shape.
func (s *Scheduler) Add(kind job.Kind, spec string) error {
	id, err := s.cron.AddFunc(spec, func() { s.fire(kind) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", kind, spec, err)
	}
	s.entries[kind] = id
	s.logger.Info("Job scheduled", zap.String("job", string(kind)), zap.String("spec", spec))
	return nil
}

// Next returns the next activation of a scheduled job, or zero when it is not scheduled.
func (s *Scheduler) Next(kind job.Kind) time.Time {
	id, ok := s.entries[kind]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Start runs the cron loop in its own goroutine. ctx is passed to every job.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts the loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) fire(kind job.Kind) {
	_, err := s.runner.Run(s.ctx, kind)
	switch {
	case err == nil:
	case errors.Is(err, job.ErrBusy):
		s.logger.Info("Scheduled job skipped: still running", zap.String("job", string(kind)))
	default:
		s.logger.Error("Scheduled job failed", zap.String("job", string(kind)), zap.Error(err))
	}
}

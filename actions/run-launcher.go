package actions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/pipeline"
)

// ErrRunActive is returned when a run is triggered while another is in progress.
var ErrRunActive = errors.New("a pipeline run is already in progress")

// RunLauncher starts pipeline runs in the background, one at a time, and records their reports.
type RunLauncher struct {
	log         logger.Logger
	registry    *pipeline.SafeMapRunReports
	newPipeline func() *pipeline.Pipeline
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	now         func() time.Time
}

func NewRunLauncher(log logger.Logger, newPipeline func() *pipeline.Pipeline) *RunLauncher {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunLauncher{
		log:         log,
		registry:    pipeline.NewSafeMapRunReports(),
		newPipeline: newPipeline,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Registry returns the reports of all runs started by this launcher.
func (l *RunLauncher) Registry() *pipeline.SafeMapRunReports {
	return l.registry
}

// Launch starts a run and returns its id without waiting for it to finish.
func (l *RunLauncher) Launch(source string) (string, error) {
	if l.ctx.Err() != nil {
		return "", errors.New("launcher is shut down")
	}
	p := l.newPipeline()
	if err := p.Validate(); err != nil {
		return "", err
	}
	trigger := pipeline.Trigger{Time: l.now(), Source: source}
	runId, runUuid := pipeline.NewRunId(p.Name, trigger.Time)
	if !l.registry.Begin(runId) {
		if active, ok := l.registry.Active(); ok {
			return "", errors.Wrapf(ErrRunActive, "active run %v", active)
		}
		return "", errors.Wrapf(ErrRunActive, "run %v already exists", runId)
	}
	l.registry.Store(&pipeline.RunReport{
		Pipeline:    p.Name,
		RunId:       runId,
		RunUuid:     runUuid,
		TriggeredAt: trigger.Time,
		State:       pipeline.StatePending,
	})
	p.OnUpdate(l.registry.Store)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.registry.End(runId)
		if _, err := p.Run(l.ctx, trigger); err != nil {
			l.log.Error(fmt.Sprintf("run %v: %v", runId, err))
		}
	}()
	l.log.Info("launched run ", runId)
	return runId, nil
}

// Shutdown cancels any active run and waits for it to record its final state, or for ctx to be done.
func (l *RunLauncher) Shutdown(ctx context.Context) error {
	l.cancel()
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/rs/xid"
)

var (
	ErrDuplicateTask      = errors.New("duplicate task name")
	ErrUnknownPredecessor = errors.New("unknown predecessor")
	ErrCycle              = errors.New("pipeline contains a cycle")
)

// TaskFailedError is returned by Run when a task exhausted its attempts.
type TaskFailedError struct {
	RunId string
	Task  string
	Err   error
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("run %v failed at task %v: %v", e.RunId, e.Task, e.Err)
}

func (e *TaskFailedError) Unwrap() error {
	return e.Err
}

type runIdKey struct{}

// RunIdFromContext returns the id of the run executing the task that received ctx.
func RunIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIdKey{}).(string)
	return v, ok
}

// Trigger describes what started a run.
type Trigger struct {
	Time   time.Time
	Source string
}

// Pipeline is an ordered set of tasks executed one at a time.
type Pipeline struct {
	Name     string
	log      logger.Logger
	tasks    []*Task
	sleeper  Sleeper
	now      func() time.Time
	onUpdate func(*RunReport)
}

func NewPipeline(log logger.Logger, name string) *Pipeline {
	return &Pipeline{
		Name:    name,
		log:     log,
		sleeper: timerSleeper{},
		now:     time.Now,
	}
}

// AddTask registers t. Registration order breaks ties in the execution order.
func (p *Pipeline) AddTask(t Task) *Pipeline {
	p.tasks = append(p.tasks, &t)
	return p
}

// SetSleeper replaces the sleeper used between retry attempts.
func (p *Pipeline) SetSleeper(s Sleeper) *Pipeline {
	p.sleeper = s
	return p
}

// SetClock replaces the clock used to stamp start and end times.
func (p *Pipeline) SetClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// OnUpdate registers fn to receive a copy of the run report after every state change.
func (p *Pipeline) OnUpdate(fn func(*RunReport)) *Pipeline {
	p.onUpdate = fn
	return p
}

// Validate checks for empty or duplicate names, unknown predecessors and cycles.
func (p *Pipeline) Validate() error {
	_, err := p.TopologicalOrder()
	return err
}

// TopologicalOrder returns the task names so that every task follows all of its predecessors.
// Among tasks that are ready at the same time, the one registered first comes first.
func (p *Pipeline) TopologicalOrder() ([]string, error) {
	pos := make(map[string]int, len(p.tasks))
	for idx, t := range p.tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("pipeline %v: task %d has no name", p.Name, idx)
		}
		if _, ok := pos[t.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateTask, "pipeline %v: task %v", p.Name, t.Name)
		}
		pos[t.Name] = idx
	}
	inDegree := make([]int, len(p.tasks))
	successors := make([][]int, len(p.tasks))
	for idx, t := range p.tasks {
		seen := make(map[string]bool, len(t.Upstream))
		for _, up := range t.Upstream {
			upIdx, ok := pos[up]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownPredecessor, "pipeline %v: task %v depends on %v", p.Name, t.Name, up)
			}
			if seen[up] {
				continue
			}
			seen[up] = true
			inDegree[idx]++
			successors[upIdx] = append(successors[upIdx], idx)
		}
	}
	// Kahn's algorithm with the ready set kept sorted by registration position.
	var ready []int
	for idx := range p.tasks {
		if inDegree[idx] == 0 {
			ready = append(ready, idx)
		}
	}
	order := make([]string, 0, len(p.tasks))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, p.tasks[next].Name)
		for _, s := range successors[next] {
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(order) != len(p.tasks) {
		var stuck []string
		for idx, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, p.tasks[idx].Name)
			}
		}
		return nil, errors.Wrapf(ErrCycle, "pipeline %v: tasks involved: %v", p.Name, strings.Join(stuck, ", "))
	}
	return order, nil
}

// Run executes the tasks in topological order, one at a time.
// A task that exhausts its retries is FAILED and all of its transitive successors are SKIPPED.
// Tasks that do not depend on a failed task still run unless ctx is done.
// The returned report is nil only if the pipeline is invalid.
// The error is a *TaskFailedError for the first task that failed.
func (p *Pipeline) Run(ctx context.Context, trigger Trigger) (*RunReport, error) {
	order, err := p.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	if trigger.Time.IsZero() {
		trigger.Time = p.now()
	}
	runId, runUuid := NewRunId(p.Name, trigger.Time)
	log := logger.WithFields(p.log, map[string]interface{}{
		"pipeline": p.Name,
		"run_id":   runId,
	})
	ctx = context.WithValue(ctx, runIdKey{}, runId)
	byName := make(map[string]*taskRun, len(p.tasks))
	runs := make([]*taskRun, 0, len(order))
	for _, name := range order {
		for _, t := range p.tasks {
			if t.Name == name {
				tr := newTaskRun(log, t)
				byName[name] = tr
				runs = append(runs, tr)
				break
			}
		}
	}
	report := &RunReport{
		Pipeline:    p.Name,
		RunId:       runId,
		RunUuid:     runUuid,
		TriggeredAt: trigger.Time,
		StartTime:   p.now(),
		State:       StateRunning,
	}
	publish := func() {
		report.Tasks = report.Tasks[:0]
		for _, tr := range runs {
			report.Tasks = append(report.Tasks, tr.result())
		}
		if p.onUpdate != nil {
			p.onUpdate(report.Copy())
		}
	}
	log.Info(fmt.Sprintf("starting run of pipeline %v with %d tasks (trigger: %v)", p.Name, len(runs), trigger.Source))
	publish()
	var failure *TaskFailedError
	for _, tr := range runs {
		if blocked := p.blockedBy(tr, byName); blocked != "" {
			log.Warn(fmt.Sprintf("skipping task %v because upstream task %v did not succeed", tr.task.Name, blocked))
			if err := tr.fire(eventSkip); err != nil {
				return nil, err
			}
			publish()
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			tr.err = ctxErr
			tr.endTime = p.now()
			if err := tr.fire(eventFail); err != nil {
				return nil, err
			}
			if failure == nil {
				failure = &TaskFailedError{RunId: runId, Task: tr.task.Name, Err: ctxErr}
			}
			// Independent tasks reach this branch on their own turn.
			publish()
			continue
		}
		if err := p.runTask(ctx, log, tr, publish); err != nil {
			return nil, err
		}
		if tr.state() == StateFailed && failure == nil {
			failure = &TaskFailedError{RunId: runId, Task: tr.task.Name, Err: tr.err}
		}
	}
	report.EndTime = p.now()
	if failure != nil {
		report.State = StateFailed
		report.FailedTask = failure.Task
		report.Error = failure.Err.Error()
		log.Error(fmt.Sprintf("run failed at task %v: %v", failure.Task, failure.Err))
	} else {
		report.State = StateSucceeded
		log.Info(fmt.Sprintf("run succeeded in %v", report.EndTime.Sub(report.StartTime)))
	}
	publish()
	if failure != nil {
		return report, failure
	}
	return report, nil
}

// blockedBy returns the name of the first predecessor of tr that did not succeed.
func (p *Pipeline) blockedBy(tr *taskRun, byName map[string]*taskRun) string {
	for _, up := range tr.task.Upstream {
		if byName[up].state() != StateSucceeded {
			return up
		}
	}
	return ""
}

// runTask executes tr, retrying per its policy until it succeeds, runs out of attempts or ctx is done.
// The returned error is only set when the state machine rejects an event.
func (p *Pipeline) runTask(ctx context.Context, log logger.Logger, tr *taskRun, publish func()) error {
	policy := tr.task.retryPolicy()
	maxAttempts := policy.MaxAttempts()
	tr.startTime = p.now()
	if err := tr.fire(eventStart); err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		tr.attempts = attempt
		publish()
		attemptLog := logger.WithFields(log, map[string]interface{}{
			"task":         tr.task.Name,
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"attempt_id":   xid.New().String(),
		})
		attemptLog.Info(fmt.Sprintf("running task %v (attempt %d of %d)", tr.task.Name, attempt, maxAttempts))
		attemptStart := p.now()
		err := invoke(ctx, tr.task)
		if err == nil {
			tr.err = nil
			tr.endTime = p.now()
			logger.WithFields(attemptLog, map[string]interface{}{"duration": tr.endTime.Sub(attemptStart).String()}).
				Info(fmt.Sprintf("task %v succeeded", tr.task.Name))
			if err := tr.fire(eventSucceed); err != nil {
				return err
			}
			publish()
			return nil
		}
		tr.err = err
		if attempt >= maxAttempts || ctx.Err() != nil {
			tr.endTime = p.now()
			logger.WithFields(attemptLog, map[string]interface{}{"duration": tr.endTime.Sub(tr.startTime).String()}).
				Error(fmt.Sprintf("task %v failed after %d attempt(s): %v", tr.task.Name, attempt, err))
			if err := tr.fire(eventFail); err != nil {
				return err
			}
			publish()
			return nil
		}
		attemptLog.Warn(fmt.Sprintf("task %v attempt %d failed, retrying in %v: %v", tr.task.Name, attempt, policy.Delay, err))
		if sleepErr := p.sleeper.Sleep(ctx, policy.Delay); sleepErr != nil {
			tr.err = errors.Wrapf(sleepErr, "retry wait interrupted after attempt %d failed with %v", attempt, err)
			tr.endTime = p.now()
			attemptLog.Error(fmt.Sprintf("task %v: %v", tr.task.Name, tr.err))
			if err := tr.fire(eventFail); err != nil {
				return err
			}
			publish()
			return nil
		}
		if err := tr.fire(eventRetry); err != nil {
			return err
		}
	}
}

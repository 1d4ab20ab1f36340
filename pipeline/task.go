package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
)

// TaskFunc is the unit of work wrapped by a Task.
type TaskFunc func(ctx context.Context) error

// Task is a named unit of work with its predecessors and retry policy.
type Task struct {
	Name     string
	Upstream []string
	// Retry defaults to DefaultRetryPolicy() when nil.
	// Use &RetryPolicy{} for a single attempt.
	Retry *RetryPolicy
	Run   TaskFunc
}

func (t *Task) retryPolicy() RetryPolicy {
	if t.Retry == nil {
		return DefaultRetryPolicy()
	}
	return *t.Retry
}

const (
	eventStart   = "start"
	eventRetry   = "retry"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventSkip    = "skip"
)

// taskRun tracks the state of one Task within one pipeline run.
type taskRun struct {
	task      *Task
	machine   *fsm.FSM
	attempts  int
	startTime time.Time
	endTime   time.Time
	err       error
}

func newTaskRun(log logger.Logger, t *Task) *taskRun {
	pending, running := StatePending.String(), StateRunning.String()
	return &taskRun{
		task: t,
		machine: fsm.NewFSM(
			pending,
			fsm.Events{
				{Name: eventStart, Src: []string{pending}, Dst: running},
				{Name: eventRetry, Src: []string{running}, Dst: running},
				{Name: eventSucceed, Src: []string{running}, Dst: StateSucceeded.String()},
				{Name: eventFail, Src: []string{pending, running}, Dst: StateFailed.String()},
				{Name: eventSkip, Src: []string{pending}, Dst: StateSkipped.String()},
			},
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					log.Debug(fmt.Sprintf("task %v state %v -> %v", t.Name, e.Src, e.Dst))
				},
			},
		),
	}
}

// fire applies event to the task state machine.
// State bookkeeping uses its own context so that a cancelled run can still record its final states.
func (r *taskRun) fire(event string) error {
	err := r.machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return errors.Wrapf(err, "task %v: unable to apply event %v", r.task.Name, event)
	}
	return nil
}

func (r *taskRun) state() State {
	s, err := ParseState(r.machine.Current())
	if err != nil {
		return StateMissing
	}
	return s
}

func (r *taskRun) result() TaskResult {
	res := TaskResult{
		Name:      r.task.Name,
		State:     r.state(),
		Attempts:  r.attempts,
		StartTime: r.startTime,
		EndTime:   r.endTime,
	}
	if !r.startTime.IsZero() && !r.endTime.IsZero() {
		res.Duration = r.endTime.Sub(r.startTime).String()
	}
	if r.err != nil {
		res.Error = r.err.Error()
	}
	return res
}

// invoke calls the task function, converting a panic into an error.
func invoke(ctx context.Context, t *Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %v panicked: %v", t.Name, p)
		}
	}()
	if t.Run == nil {
		return fmt.Errorf("task %v has no function to run", t.Name)
	}
	return t.Run(ctx)
}

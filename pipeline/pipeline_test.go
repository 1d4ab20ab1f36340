package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/campaignpipe/pipeline"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Pipeline", func() {
	var (
		log     *logrus.Logger
		delays  []time.Duration
		sleeper pipeline.Sleeper
		policy  pipeline.RetryPolicy
		trigger pipeline.Trigger
	)

	ok := func(calls *int) pipeline.TaskFunc {
		return func(ctx context.Context) error {
			*calls++
			return nil
		}
	}

	failTimes := func(n int, calls *int) pipeline.TaskFunc {
		return func(ctx context.Context) error {
			*calls++
			if *calls <= n {
				return errors.New("connection refused")
			}
			return nil
		}
	}

	BeforeEach(func() {
		log = logrus.New()
		log.SetOutput(ioutil.Discard)
		delays = nil
		sleeper = pipeline.SleeperFunc(func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})
		policy = pipeline.DefaultRetryPolicy()
		trigger = pipeline.Trigger{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Source: "test"}
	})

	Describe("DefaultRetryPolicy", func() {
		It("allows two retries two minutes apart", func() {
			Expect(policy.MaxRetries).To(Equal(2))
			Expect(policy.Delay).To(Equal(2 * time.Minute))
			Expect(policy.MaxAttempts()).To(Equal(3))
		})
	})

	Describe("TopologicalOrder", func() {
		It("places predecessors first and breaks ties by registration order", func() {
			p := pipeline.NewPipeline(log, "p").
				AddTask(pipeline.Task{Name: "b", Upstream: []string{"a"}}).
				AddTask(pipeline.Task{Name: "a"}).
				AddTask(pipeline.Task{Name: "c"})
			order, err := p.TopologicalOrder()
			Expect(err).ToNot(HaveOccurred())
			Expect(order).To(Equal([]string{"a", "b", "c"}))
		})

		It("orders a linear chain", func() {
			p := pipeline.NewPipeline(log, "p").
				AddTask(pipeline.Task{Name: "transform"}).
				AddTask(pipeline.Task{Name: "load_staging", Upstream: []string{"transform"}}).
				AddTask(pipeline.Task{Name: "load_dimensions", Upstream: []string{"load_staging"}})
			order, err := p.TopologicalOrder()
			Expect(err).ToNot(HaveOccurred())
			Expect(order).To(Equal([]string{"transform", "load_staging", "load_dimensions"}))
		})

		It("rejects cycles", func() {
			p := pipeline.NewPipeline(log, "p").
				AddTask(pipeline.Task{Name: "a", Upstream: []string{"b"}}).
				AddTask(pipeline.Task{Name: "b", Upstream: []string{"a"}}).
				AddTask(pipeline.Task{Name: "c"})
			err := p.Validate()
			Expect(errors.Is(err, pipeline.ErrCycle)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("a, b"))
		})

		It("rejects unknown predecessors", func() {
			p := pipeline.NewPipeline(log, "p").AddTask(pipeline.Task{Name: "a", Upstream: []string{"missing"}})
			Expect(errors.Is(p.Validate(), pipeline.ErrUnknownPredecessor)).To(BeTrue())
		})

		It("rejects duplicate names", func() {
			p := pipeline.NewPipeline(log, "p").AddTask(pipeline.Task{Name: "a"}).AddTask(pipeline.Task{Name: "a"})
			Expect(errors.Is(p.Validate(), pipeline.ErrDuplicateTask)).To(BeTrue())
		})
	})

	Describe("Run", func() {
		It("refuses to run an invalid pipeline", func() {
			calls := 0
			p := pipeline.NewPipeline(log, "p").
				AddTask(pipeline.Task{Name: "a", Upstream: []string{"a"}, Run: ok(&calls)})
			report, err := p.Run(context.Background(), trigger)
			Expect(report).To(BeNil())
			Expect(errors.Is(err, pipeline.ErrCycle)).To(BeTrue())
			Expect(calls).To(Equal(0))
		})

		It("retries a failing task with exactly one delay per failure", func() {
			calls := 0
			p := pipeline.NewPipeline(log, "p").SetSleeper(sleeper).
				AddTask(pipeline.Task{Name: "flaky", Retry: &policy, Run: failTimes(2, &calls)})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).ToNot(HaveOccurred())
			Expect(calls).To(Equal(3))
			Expect(delays).To(Equal([]time.Duration{2 * time.Minute, 2 * time.Minute}))
			Expect(report.State).To(Equal(pipeline.StateSucceeded))
			res, found := report.Task("flaky")
			Expect(found).To(BeTrue())
			Expect(res.State).To(Equal(pipeline.StateSucceeded))
			Expect(res.Attempts).To(Equal(3))
			Expect(res.Error).To(BeEmpty())
		})

		It("fails the run and skips successors when a task exhausts its retries", func() {
			var transformCalls, stagingCalls, dimCalls, factCalls int
			p := pipeline.NewPipeline(log, "marketing").SetSleeper(sleeper).
				AddTask(pipeline.Task{Name: "transform", Retry: &policy, Run: ok(&transformCalls)}).
				AddTask(pipeline.Task{Name: "load_staging", Upstream: []string{"transform"}, Retry: &policy, Run: failTimes(100, &stagingCalls)}).
				AddTask(pipeline.Task{Name: "load_dimensions", Upstream: []string{"load_staging"}, Retry: &policy, Run: ok(&dimCalls)}).
				AddTask(pipeline.Task{Name: "load_fact", Upstream: []string{"load_dimensions"}, Retry: &policy, Run: ok(&factCalls)})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).To(HaveOccurred())
			var tfe *pipeline.TaskFailedError
			Expect(errors.As(err, &tfe)).To(BeTrue())
			Expect(tfe.Task).To(Equal("load_staging"))
			Expect(tfe.Err.Error()).To(Equal("connection refused"))

			Expect(stagingCalls).To(Equal(3))
			Expect(delays).To(HaveLen(2))
			Expect(transformCalls).To(Equal(1))
			Expect(dimCalls).To(Equal(0))
			Expect(factCalls).To(Equal(0))

			Expect(report.State).To(Equal(pipeline.StateFailed))
			Expect(report.FailedTask).To(Equal("load_staging"))
			states := map[string]pipeline.State{}
			for _, t := range report.Tasks {
				states[t.Name] = t.State
			}
			Expect(states).To(Equal(map[string]pipeline.State{
				"transform":       pipeline.StateSucceeded,
				"load_staging":    pipeline.StateFailed,
				"load_dimensions": pipeline.StateSkipped,
				"load_fact":       pipeline.StateSkipped,
			}))
		})

		It("applies the default policy to a task registered without one", func() {
			calls := 0
			p := pipeline.NewPipeline(log, "p").SetSleeper(sleeper).
				AddTask(pipeline.Task{Name: "a", Run: failTimes(100, &calls)})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal(3))
			Expect(delays).To(Equal([]time.Duration{2 * time.Minute, 2 * time.Minute}))
			Expect(report.Tasks[0].Attempts).To(Equal(3))
		})

		It("still runs tasks that do not depend on the failed task", func() {
			var badCalls, otherCalls int
			p := pipeline.NewPipeline(log, "p").SetSleeper(sleeper).
				AddTask(pipeline.Task{Name: "bad", Retry: &pipeline.RetryPolicy{}, Run: failTimes(100, &badCalls)}).
				AddTask(pipeline.Task{Name: "other", Run: ok(&otherCalls)})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).To(HaveOccurred())
			Expect(badCalls).To(Equal(1))
			Expect(delays).To(BeEmpty())
			Expect(otherCalls).To(Equal(1))
			Expect(report.State).To(Equal(pipeline.StateFailed))
		})

		It("records the context error when cancelled during a retry delay", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var calls, nextCalls int
			p := pipeline.NewPipeline(log, "p").
				SetSleeper(pipeline.SleeperFunc(func(ctx context.Context, d time.Duration) error {
					cancel()
					<-ctx.Done()
					return ctx.Err()
				})).
				AddTask(pipeline.Task{Name: "a", Retry: &policy, Run: failTimes(100, &calls)}).
				AddTask(pipeline.Task{Name: "b", Upstream: []string{"a"}, Retry: &policy, Run: ok(&nextCalls)})
			report, err := p.Run(ctx, trigger)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(calls).To(Equal(1))
			Expect(nextCalls).To(Equal(0))
			a, _ := report.Task("a")
			Expect(a.State).To(Equal(pipeline.StateFailed))
			Expect(a.Error).To(ContainSubstring("context canceled"))
			b, _ := report.Task("b")
			Expect(b.State).To(Equal(pipeline.StateSkipped))
		})

		It("fails the next task without running it when the context is already done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			calls := 0
			p := pipeline.NewPipeline(log, "p").AddTask(pipeline.Task{Name: "a", Run: ok(&calls)})
			report, err := p.Run(ctx, trigger)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(calls).To(Equal(0))
			Expect(report.Tasks[0].State).To(Equal(pipeline.StateFailed))
			Expect(report.Tasks[0].Attempts).To(Equal(0))
		})

		It("converts a panic into a task failure", func() {
			p := pipeline.NewPipeline(log, "p").
				AddTask(pipeline.Task{Name: "a", Retry: &pipeline.RetryPolicy{}, Run: func(ctx context.Context) error { panic("boom") }})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).To(HaveOccurred())
			Expect(report.Tasks[0].Error).To(ContainSubstring("boom"))
		})

		It("derives the run id from the trigger time and passes it to tasks", func() {
			var seenRunId string
			p := pipeline.NewPipeline(log, "p").AddTask(pipeline.Task{Name: "a", Run: func(ctx context.Context) error {
				seenRunId, _ = pipeline.RunIdFromContext(ctx)
				return nil
			}})
			report, err := p.Run(context.Background(), trigger)
			Expect(err).ToNot(HaveOccurred())
			Expect(report.RunId).To(Equal("manual__20240102T030405"))
			Expect(seenRunId).To(Equal(report.RunId))
			_, expectedUuid := pipeline.NewRunId("p", trigger.Time)
			Expect(report.RunUuid).To(Equal(expectedUuid))
		})

		It("publishes updates that a registry can store", func() {
			calls := 0
			registry := pipeline.NewSafeMapRunReports()
			var seen []pipeline.State
			p := pipeline.NewPipeline(log, "p").
				OnUpdate(func(r *pipeline.RunReport) {
					registry.Store(r)
					seen = append(seen, r.Tasks[0].State)
				}).
				AddTask(pipeline.Task{Name: "a", Run: ok(&calls)})
			_, err := p.Run(context.Background(), trigger)
			Expect(err).ToNot(HaveOccurred())
			Expect(seen).To(ContainElement(pipeline.StateRunning))
			Expect(seen[len(seen)-1]).To(Equal(pipeline.StateSucceeded))
			stored, found := registry.Load("manual__20240102T030405")
			Expect(found).To(BeTrue())
			Expect(stored.State).To(Equal(pipeline.StateSucceeded))
		})
	})

	Describe("RunReport", func() {
		var report *pipeline.RunReport

		BeforeEach(func() {
			calls := 0
			var err error
			report, err = pipeline.NewPipeline(log, "p").AddTask(pipeline.Task{Name: "a", Run: ok(&calls)}).
				Run(context.Background(), trigger)
			Expect(err).ToNot(HaveOccurred())
		})

		It("renders states as names in JSON", func() {
			b, err := report.Format(pipeline.OutputFormatJson)
			Expect(err).ToNot(HaveOccurred())
			var decoded map[string]interface{}
			Expect(json.Unmarshal(b, &decoded)).To(Succeed())
			Expect(decoded["state"]).To(Equal("SUCCEEDED"))
			Expect(decoded["runId"]).To(Equal("manual__20240102T030405"))
		})

		It("renders states as names in YAML", func() {
			b, err := report.Format(pipeline.OutputFormatYaml)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(ContainSubstring("state: SUCCEEDED"))
			Expect(string(b)).To(ContainSubstring("runUuid: " + report.RunUuid.String()))
		})

		It("rejects unknown formats", func() {
			_, err := report.Format("xml")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("State", func() {
		It("round trips through JSON", func() {
			b, err := json.Marshal(pipeline.StateSkipped)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(Equal(`"SKIPPED"`))
			var s pipeline.State
			Expect(json.Unmarshal(b, &s)).To(Succeed())
			Expect(s).To(Equal(pipeline.StateSkipped))
			Expect(s.IsFinished()).To(BeTrue())
		})

		It("rejects unknown names", func() {
			_, err := pipeline.ParseState("BOGUS")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SafeMapRunReports", func() {
		It("allows one active run at a time", func() {
			r := pipeline.NewSafeMapRunReports()
			Expect(r.Begin("one")).To(BeTrue())
			Expect(r.Begin("two")).To(BeFalse())
			active, busy := r.Active()
			Expect(busy).To(BeTrue())
			Expect(active).To(Equal("one"))
			r.End("one")
			Expect(r.Begin("two")).To(BeTrue())
		})

		It("lists the newest run first", func() {
			r := pipeline.NewSafeMapRunReports()
			t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			r.Store(&pipeline.RunReport{RunId: "old", TriggeredAt: t0})
			r.Store(&pipeline.RunReport{RunId: "new", TriggeredAt: t0.Add(time.Hour)})
			list := r.List()
			Expect(list).To(HaveLen(2))
			Expect(list[0].RunId).To(Equal("new"))
		})
	})
})

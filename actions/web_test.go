package actions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/pipeline"
)

var _ = Describe("Web server", func() {
	var (
		release  chan struct{}
		launcher *actions.RunLauncher
		chanStop chan string
		router   *mux.Router
	)

	call := func(method string, url string) (int, map[string]interface{}) {
		req := httptest.NewRequest(method, url, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return rec.Code, body
	}

	runState := func(runId string) func() string {
		return func() string {
			_, body := call(http.MethodGet, "/runs/"+runId)
			run, ok := body["run"].(map[string]interface{})
			if !ok {
				return ""
			}
			return run["state"].(string)
		}
	}

	BeforeEach(func() {
		log := newDiscardLogger()
		release = make(chan struct{})
		chanStop = make(chan string, 1)
		launcher = actions.NewRunLauncher(log, func() *pipeline.Pipeline {
			return pipeline.NewPipeline(log, "test_pipeline").AddTask(pipeline.Task{
				Name:  "wait",
				Retry: &pipeline.RetryPolicy{},
				Run: func(ctx context.Context) error {
					select {
					case <-release:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				},
			})
		})
		router = actions.NewRouter(log, launcher, chanStop)
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(launcher.Shutdown(ctx)).To(Succeed())
	})

	It("reports health", func() {
		code, body := call(http.MethodGet, "/health")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["status"]).To(Equal("ok"))
	})

	It("launches a run, rejects a second trigger and reports the result", func() {
		code, body := call(http.MethodPost, "/runs")
		Expect(code).To(Equal(http.StatusAccepted))
		runId, _ := body["runId"].(string)
		Expect(runId).To(HavePrefix("manual__"))

		code, _ = call(http.MethodPost, "/runs")
		Expect(code).To(Equal(http.StatusConflict))

		Eventually(runState(runId)).Should(Equal("RUNNING"))
		close(release)
		Eventually(runState(runId)).Should(Equal("SUCCEEDED"))

		code, body = call(http.MethodGet, "/runs")
		Expect(code).To(Equal(http.StatusOK))
		runs, _ := body["runs"].([]interface{})
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].(map[string]interface{})["runId"]).To(Equal(runId))
	})

	It("fails the active run on shutdown", func() {
		_, body := call(http.MethodPost, "/runs")
		runId := body["runId"].(string)
		Eventually(runState(runId)).Should(Equal("RUNNING"))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(launcher.Shutdown(ctx)).To(Succeed())
		Expect(runState(runId)()).To(Equal("FAILED"))
		_, err := launcher.Launch("test")
		Expect(err).To(HaveOccurred())
	})

	It("returns not found for unknown runs", func() {
		code, body := call(http.MethodGet, "/runs/manual__20000101T000000")
		Expect(code).To(Equal(http.StatusNotFound))
		Expect(body["status"]).To(Equal("error"))
	})

	It("signals the server to stop", func() {
		code, _ := call(http.MethodGet, "/stop")
		Expect(code).To(Equal(http.StatusOK))
		Expect(chanStop).To(Receive(Equal("stop")))
		code, _ = call(http.MethodGet, "/stop")
		Expect(code).To(Equal(http.StatusOK))
	})
})

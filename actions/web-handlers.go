package actions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/pipeline"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status WebServerResponse `json:"status"`
	Runs   []RunListItem     `json:"runs"`
}

type RunListItem struct {
	RunId       string         `json:"runId"`
	State       pipeline.State `json:"state"`
	TriggeredAt time.Time      `json:"triggeredAt"`
	FailedTask  string         `json:"failedTask,omitempty"`
}

type ResponseRunStatus struct {
	Status  WebServerResponse   `json:"status"`
	Message string              `json:"message"`
	Run     *pipeline.RunReport `json:"run,omitempty"`
}

type ResponseRunLaunch struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunId   string            `json:"runId,omitempty"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending.
		}
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerRunLaunch(log logger.Logger, launcher *RunLauncher) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		runId, err := launcher.Launch("http")
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrRunActive) {
				status = http.StatusConflict
			}
			log.Warn("HTTP request to launch a run was refused: ", err)
			w.WriteHeader(status)
			respond(log, w, ResponseRunLaunch{Status: Error, Message: err.Error()})
			return
		}
		w.Header().Set("Location", fmt.Sprintf("%v/%v", urlContext4Runs, runId))
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseRunLaunch{Status: Okay, Message: "run launched", RunId: runId})
	}
}

func GetHandlerRunList(log logger.Logger, registry *pipeline.SafeMapRunReports) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		reports := registry.List()
		runs := make([]RunListItem, 0, len(reports))
		for _, v := range reports {
			runs = append(runs, RunListItem{
				RunId:       v.RunId,
				State:       v.State,
				TriggeredAt: v.TriggeredAt,
				FailedTask:  v.FailedTask,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunList{Status: Okay, Runs: runs})
	}
}

func GetHandlerRunStatus(log logger.Logger, registry *pipeline.SafeMapRunReports) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		w.Header().Set("Content-Type", "application/json")
		report, ok := registry.Load(id)
		if !ok { // if the run doesn't exist...
			log.Info("HTTP request to fetch status for run ", id, " that doesn't exist.")
			w.WriteHeader(http.StatusNotFound)
			respond(log, w, ResponseRunStatus{Status: Error, Message: "run does not exist"})
			return
		}
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunStatus{Status: Okay, Run: report})
	}
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error(err)
		return
	}
	if _, err = fmt.Fprint(w, string(j)); err != nil {
		log.Error(err)
	}
}

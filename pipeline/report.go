package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	yamlv2 "gopkg.in/yaml.v2"
)

const (
	OutputFormatJson = "json"
	OutputFormatYaml = "yaml"
)

// TaskResult is the outcome of one task in a run.
type TaskResult struct {
	Name      string    `json:"name" yaml:"name"`
	State     State     `json:"state" yaml:"state"`
	Attempts  int       `json:"attempts" yaml:"attempts"`
	StartTime time.Time `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	Duration  string    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport summarises a pipeline run.
type RunReport struct {
	Pipeline    string       `json:"pipeline" yaml:"pipeline"`
	RunId       string       `json:"runId" yaml:"runId"`
	RunUuid     uuid.UUID    `json:"runUuid" yaml:"-"`
	TriggeredAt time.Time    `json:"triggeredAt" yaml:"triggeredAt"`
	StartTime   time.Time    `json:"startTime" yaml:"startTime"`
	EndTime     time.Time    `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	State       State        `json:"state" yaml:"state"`
	FailedTask  string       `json:"failedTask,omitempty" yaml:"failedTask,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	Tasks       []TaskResult `json:"tasks" yaml:"tasks"`
}

// Task returns the result for the named task.
func (r *RunReport) Task(name string) (TaskResult, bool) {
	for _, t := range r.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskResult{}, false
}

// Copy returns a deep copy of the report.
func (r *RunReport) Copy() *RunReport {
	c := *r
	c.Tasks = append([]TaskResult(nil), r.Tasks...)
	return &c
}

func (r *RunReport) ToJson() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (r *RunReport) ToYaml() ([]byte, error) {
	type yamlReport struct {
		RunReport `yaml:",inline"`
		RunUuid   string `yaml:"runUuid"`
	}
	return yamlv2.Marshal(yamlReport{RunReport: *r, RunUuid: r.RunUuid.String()})
}

// Format renders the report in the given output format.
func (r *RunReport) Format(format string) ([]byte, error) {
	switch format {
	case OutputFormatJson, "":
		return r.ToJson()
	case OutputFormatYaml:
		return r.ToYaml()
	default:
		return nil, fmt.Errorf("unsupported output format %q, use %v or %v", format, OutputFormatJson, OutputFormatYaml)
	}
}

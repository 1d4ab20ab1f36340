package pipeline

import (
	"sort"
	"sync"
)

// SafeMapRunReports holds run reports keyed by run id, with locking via Load() and Store() methods.
// At most one run may be active at a time.
type SafeMapRunReports struct {
	sync.RWMutex
	Internal map[string]*RunReport
	active   string
}

func NewSafeMapRunReports() *SafeMapRunReports {
	r := SafeMapRunReports{}
	r.Internal = make(map[string]*RunReport)
	return &r
}

func (r *SafeMapRunReports) Load(runId string) (rr *RunReport, ok bool) {
	r.RLock()
	v, ok := r.Internal[runId]
	if ok {
		rr = v.Copy()
	}
	r.RUnlock()
	return
}

// Store saves a copy of report. It is suitable for use with Pipeline.OnUpdate().
func (r *SafeMapRunReports) Store(report *RunReport) {
	r.Lock()
	r.Internal[report.RunId] = report.Copy()
	r.Unlock()
}

// List returns copies of all reports, most recently triggered first.
func (r *SafeMapRunReports) List() []*RunReport {
	r.RLock()
	list := make([]*RunReport, 0, len(r.Internal))
	for _, v := range r.Internal {
		list = append(list, v.Copy())
	}
	r.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].TriggeredAt.Equal(list[j].TriggeredAt) {
			return list[i].RunId > list[j].RunId
		}
		return list[i].TriggeredAt.After(list[j].TriggeredAt)
	})
	return list
}

// Begin marks runId as the active run.
// It returns false if another run is active or runId has been used before.
func (r *SafeMapRunReports) Begin(runId string) bool {
	r.Lock()
	defer r.Unlock()
	if r.active != "" {
		return false
	}
	if _, ok := r.Internal[runId]; ok {
		return false
	}
	r.active = runId
	return true
}

// End clears the active run if it is runId.
func (r *SafeMapRunReports) End(runId string) {
	r.Lock()
	if r.active == runId {
		r.active = ""
	}
	r.Unlock()
}

// Active returns the id of the active run, if any.
func (r *SafeMapRunReports) Active() (string, bool) {
	r.RLock()
	defer r.RUnlock()
	return r.active, r.active != ""
}

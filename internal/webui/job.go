package webui

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/report"
)

// JobState is the lifecycle of an uploaded file
type JobState string

const (
	JobUploaded JobState = "uploaded"
	JobRunning  JobState = "running"
	JobDone     JobState = "done"
	JobFailed   JobState = "failed"
)

// Job holds one uploaded CSV and, once started, its run. It implements
// batch.Observer so the runner can report into it.
type Job struct {
	mu sync.RWMutex

	ID        string
	Filename  string
	Tasks     []connection.Task
	CreatedAt time.Time

	state   JobState
	limit   int
	status  string
	done    int
	results []connection.Result
	err     error
}

// JobView is a consistent copy of a Job for rendering
type JobView struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	State    JobState          `json:"state"`
	Rows     int               `json:"rows"`
	Limit    int               `json:"limit"`
	Done     int               `json:"done"`
	Percent  int               `json:"percent"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Results  []report.Row      `json:"results"`
	Preview  []connection.Task `json:"-"`
}

func newJob(filename string, tasks []connection.Task) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Tasks:     tasks,
		CreatedAt: time.Now(),
		state:     JobUploaded,
	}
}

func (j *Job) Status(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = msg
}

func (j *Job) Progress(done, total int, result connection.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done = done
	j.limit = total
	j.results = append(j.results, result)
}

func (j *Job) start(limit int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = JobRunning
	j.limit = limit
	j.done = 0
	j.results = nil
	j.err = nil
}

// finish stores the final results. Partial results from an interrupted run
// are kept so they can still be downloaded.
func (j *Job) finish(results []connection.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if results != nil {
		j.results = results
		j.done = len(results)
	}
	if err != nil {
		j.state = JobFailed
		j.err = err
		j.status = "Run failed: " + err.Error()
		return
	}
	j.state = JobDone
}

// Results returns a copy of the results gathered so far
func (j *Job) Results() []connection.Result {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]connection.Result(nil), j.results...)
}

func (j *Job) view(previewRows int) JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()

	v := JobView{
		ID:       j.ID,
		Filename: j.Filename,
		State:    j.state,
		Rows:     len(j.Tasks),
		Limit:    j.limit,
		Done:     j.done,
		Status:   j.status,
		Results:  report.Rows(j.results),
		Preview:  j.Tasks[:min(previewRows, len(j.Tasks))],
	}
	if j.limit > 0 {
		v.Percent = j.done * 100 / j.limit
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	return v
}

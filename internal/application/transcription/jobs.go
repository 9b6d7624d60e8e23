package transcription

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle of a background transcription.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobTTL is how long a job can be polled after creation.
const JobTTL = time.Hour

type Job struct {
	ID        string    `json:"jobId"`
	UserID    string    `json:"-"`
	Status    JobStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// jobRegistry is the in-memory table of background jobs.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

func newJobRegistry(now func() time.Time) *jobRegistry {
	return &jobRegistry{jobs: map[string]*Job{}, now: now}
}

func (r *jobRegistry) add(id, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &Job{ID: id, UserID: userID, Status: JobPending, CreatedAt: r.now()}
}

func (r *jobRegistry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		fn(j)
	}
}

// lookup returns a copy of the job. expired is true when the job outlived
// JobTTL, in which case it is also dropped.
func (r *jobRegistry) lookup(id string) (job Job, found, expired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false, false
	}
	if r.now().Sub(j.CreatedAt) > JobTTL {
		delete(r.jobs, id)
		return Job{}, true, true
	}
	return *j, true, false
}

// sweep drops every expired job.
func (r *jobRegistry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if r.now().Sub(j.CreatedAt) > JobTTL {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

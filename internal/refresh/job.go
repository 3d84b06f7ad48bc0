package refresh

import (
	"sync"
	"time"
)

// State is the refresh job lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Running reports whether a refresh is in flight.
func (s State) Running() bool {
	return s == StateFetching || s == StateProcessing
}

// Terminal reports whether the state allows a reset.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Progress describes how far a running (or finished) refresh got.
type Progress struct {
	Message   string   `json:"message"`
	Total     int      `json:"total"`
	Fetched   int      `json:"fetched"`
	Processed int      `json:"processed"`
	Skipped   []string `json:"skipped,omitempty"`
}

// Snapshot is an atomic copy of the job record, safe to hand to
// status readers.
type Snapshot struct {
	State       State      `json:"state"`
	Progress    Progress   `json:"progress"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	LastSuccess *time.Time `json:"last_success_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Job is the singleton refresh record. It is the only mutable state
// shared between the background pipeline and status readers, so every
// mutation happens under the lock and readers get consistent copies.
type Job struct {
	mu          sync.RWMutex
	state       State
	progress    Progress
	startedAt   *time.Time
	lastSuccess *time.Time
	lastError   string
}

// NewJob returns a job in idle, as at process start.
func NewJob() *Job {
	return &Job{state: StateIdle}
}

// TryStart moves idle/completed/failed to fetching. Returns false
// without side effects when a refresh is already running.
func (j *Job) TryStart(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Running() {
		return false
	}

	j.state = StateFetching
	j.startedAt = &now
	j.lastError = ""
	j.progress = Progress{Message: "fetching source data"}
	return true
}

// SetTotal records the universe size once it is known.
func (j *Job) SetTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Total = n
}

// BeginProcessing advances fetching to processing.
func (j *Job) BeginProcessing() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state == StateFetching {
		j.state = StateProcessing
		j.progress.Message = "computing indicators and scores"
	}
}

// MarkFetched increments the fetch counter.
func (j *Job) MarkFetched() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Fetched++
}

// MarkProcessed increments the compute counter.
func (j *Job) MarkProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Processed++
}

// AddSkip records a per-symbol failure. Skips do not fail the job.
func (j *Job) AddSkip(symbol string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Skipped = append(j.progress.Skipped, symbol)
}

// SetMessage updates the progress message.
func (j *Job) SetMessage(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Message = msg
}

// Complete moves the job to completed and records the success time.
func (j *Job) Complete(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.state = StateCompleted
	j.lastSuccess = &now
	j.progress.Message = "refresh completed"
}

// Fail moves the job to failed with a systemic error. The last
// success time is left intact.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.state = StateFailed
	j.lastError = err.Error()
	j.progress.Message = "refresh failed"
}

// Reset returns a terminal job to idle. Rejected while running; the
// last success time survives the reset.
func (j *Job) Reset() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.Terminal() {
		return false
	}

	j.state = StateIdle
	j.startedAt = nil
	j.lastError = ""
	j.progress = Progress{}
	return true
}

// Status returns a consistent copy of the record.
func (j *Job) Status() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := Snapshot{
		State:     j.state,
		Progress:  j.progress,
		LastError: j.lastError,
	}
	if len(j.progress.Skipped) > 0 {
		snap.Progress.Skipped = append([]string(nil), j.progress.Skipped...)
	}
	if j.startedAt != nil {
		t := *j.startedAt
		snap.StartedAt = &t
	}
	if j.lastSuccess != nil {
		t := *j.lastSuccess
		snap.LastSuccess = &t
	}
	return snap
}

package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// EncodeJob represents an async dataset encoding job.
type EncodeJob struct {
	EventBroadcaster

	ID            string
	Status        JobStatus
	Progress      int
	TotalImages   int
	EncodedImages int
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time
	Result        *recognizer.EnrollResult
}

// GetStatus returns the current job status.
func (j *EncodeJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot returns a copy of the job fields safe to encode while the job runs.
func (j *EncodeJob) Snapshot() EncodeJobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return EncodeJobSnapshot{
		ID:            j.ID,
		Status:        j.Status,
		Progress:      j.Progress,
		TotalImages:   j.TotalImages,
		EncodedImages: j.EncodedImages,
		Error:         j.Error,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		Result:        j.Result,
	}
}

// Cancel cancels the encoding job. The status changes before the cancelled
// event goes out so streams see a terminal job.
func (j *EncodeJob) Cancel() {
	j.mu.Lock()
	if !isJobTerminal(j.Status) {
		j.Status = JobStatusCancelled
	}
	j.mu.Unlock()
	j.EventBroadcaster.Cancel()
}

// EncodeJobSnapshot is the JSON view of an EncodeJob.
type EncodeJobSnapshot struct {
	ID            string                   `json:"id"`
	Status        JobStatus                `json:"status"`
	Progress      int                      `json:"progress"`
	TotalImages   int                      `json:"total_images"`
	EncodedImages int                      `json:"encoded_images"`
	Error         string                   `json:"error,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
	Result        *recognizer.EnrollResult `json:"result,omitempty"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*EncodeJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*EncodeJob),
	}
}

// CreateJob registers a pending job unless another one is still active, in
// which case the active job is returned with ok == false.
func (m *JobManager) CreateJob(id string, cancel context.CancelFunc) (job *EncodeJob, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.jobs {
		if !isJobTerminal(existing.GetStatus()) {
			return existing, false
		}
	}

	job = &EncodeJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	job.cancel = cancel
	m.jobs[id] = job
	return job, true
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *EncodeJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// CancelAll cancels every job that has not finished yet.
func (m *JobManager) CancelAll() {
	m.mu.RLock()
	jobs := make([]*EncodeJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	for _, job := range jobs {
		if !isJobTerminal(job.GetStatus()) {
			job.Cancel()
		}
	}
}

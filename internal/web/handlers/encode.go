package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// EncodeHandler runs dataset encoding as a background job.
type EncodeHandler struct {
	service    *recognizer.Service
	jobManager *JobManager
}

// NewEncodeHandler creates a new encode handler.
func NewEncodeHandler(svc *recognizer.Service, jm *JobManager) *EncodeHandler {
	return &EncodeHandler{
		service:    svc,
		jobManager: jm,
	}
}

// Start starts an encoding job. Only one job may be active at a time.
func (h *EncodeHandler) Start(w http.ResponseWriter, r *http.Request) {
	// The job outlives the request, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())

	job, ok := h.jobManager.CreateJob(uuid.New().String(), cancel)
	if !ok {
		cancel()
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":  recognizer.ErrEnrollRunning.Error(),
			"job_id": job.ID,
		})
		return
	}

	go h.runEncodeJob(ctx, job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// lookupJob resolves the {jobId} URL parameter. It writes the error response
// and returns false when the job cannot be found.
func (h *EncodeHandler) lookupJob(w http.ResponseWriter, r *http.Request) (*EncodeJob, bool) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil, false
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

// Status returns the current state of a job.
func (h *EncodeHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE
func (h *EncodeHandler) Events(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	streamJobEvents(w, r, job)
}

// Cancel cancels an encoding job
func (h *EncodeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	if isJobTerminal(job.GetStatus()) {
		respondJSON(w, http.StatusOK, map[string]bool{"cancelled": false})
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runEncodeJob encodes the dataset in the background and swaps the gallery.
func (h *EncodeHandler) runEncodeJob(ctx context.Context, job *EncodeJob) {
	defer job.cancel()

	job.mu.Lock()
	if job.Status == JobStatusCancelled {
		job.mu.Unlock()
		return
	}
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Encoding started"})
	log.Printf("Encode job %s started", job.ID)

	result, err := h.service.Enroll(ctx, func(done, total int) {
		job.mu.Lock()
		job.EncodedImages = done
		job.TotalImages = total
		if total > 0 {
			job.Progress = done * 100 / total
		}
		job.mu.Unlock()
		job.SendEvent(JobEvent{
			Type: "progress",
			Data: map[string]int{
				"encoded_images": done,
				"total_images":   total,
			},
		})
	})

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			log.Printf("Encode job %s cancelled", job.ID)
			return
		}
		h.failJob(job, fmt.Sprintf("encoding failed: %v", err))
		return
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = 100
	job.Result = result
	job.mu.Unlock()

	log.Printf("Encode job %s completed: %d faces of %d people from %d images",
		job.ID, result.Faces, result.People, result.Images)
	job.SendEvent(JobEvent{Type: "completed", Data: result})
}

func (h *EncodeHandler) failJob(job *EncodeJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	log.Printf("Encode job %s failed: %s", job.ID, sanitizeForLog(message))
	job.SendEvent(JobEvent{Type: "failed", Message: message})
}

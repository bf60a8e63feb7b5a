package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// AttendanceHandler exposes the attendance log.
type AttendanceHandler struct {
	service *recognizer.Service
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc *recognizer.Service) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
	}
}

// AttendanceResponse is the attendance log of one day, or of all days when
// Date is empty.
type AttendanceResponse struct {
	Date    string                      `json:"date,omitempty"`
	Records []database.AttendanceRecord `json:"records"`
}

// MarkRequest is the body of a manual attendance mark.
type MarkRequest struct {
	Name string `json:"name"`
}

// List handles GET /attendance?date=YYYY-MM-DD.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")

	records, err := h.service.Attendance(r.Context(), day)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, AttendanceResponse{Date: day, Records: records})
}

// Mark handles POST /attendance with a JSON body {"name": ...}.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	marked, err := h.service.MarkAttendance(r.Context(), req.Name)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if marked {
		log.Printf("Marked attendance for %s", sanitizeForLog(req.Name))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"name":   req.Name,
		"marked": marked,
	})
}

func (h *AttendanceHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recognizer.ErrInvalidDate):
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	case errors.Is(err, facematch.ErrInvalidName):
		respondError(w, http.StatusBadRequest, "invalid name")
	case errors.Is(err, recognizer.ErrAttendanceDisabled):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("Attendance request failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// FacesHandler handles recognition and sample collection endpoints.
type FacesHandler struct {
	service *recognizer.Service
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(svc *recognizer.Service) *FacesHandler {
	return &FacesHandler{
		service: svc,
	}
}

// RecognizeResponse lists the names of all faces in detection order, with
// the per-face details alongside.
type RecognizeResponse struct {
	Recognized []string                    `json:"recognized"`
	Faces      []recognizer.RecognizedFace `json:"faces"`
}

// CollectResponse describes a stored sample.
type CollectResponse struct {
	Status   string `json:"status"`
	Path     string `json:"path"`
	Enrolled bool   `json:"enrolled,omitempty"`
	FaceID   string `json:"face_id,omitempty"`
}

// Recognize handles POST /recognize with a multipart "file". The
// mark_attendance field is ignored here.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	h.recognize(w, r, false)
}

// RecognizeAndMark is Recognize that also honours a mark_attendance form field.
func (h *FacesHandler) RecognizeAndMark(w http.ResponseWriter, r *http.Request) {
	h.recognize(w, r, true)
}

func (h *FacesHandler) recognize(w http.ResponseWriter, r *http.Request, allowMark bool) {
	if !parseUploadForm(w, r) {
		return
	}
	data, err := readUpload(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts recognizer.RecognizeOptions
	if allowMark {
		opts.MarkAttendance, _ = strconv.ParseBool(r.FormValue("mark_attendance"))
	}
	rec, err := h.service.Recognize(r.Context(), data, opts)
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) {
			respondError(w, http.StatusBadRequest, "Invalid image")
			return
		}
		log.Printf("Recognition failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Recognized: rec.Names(),
		Faces:      rec.Faces,
	})
}

// Annotate handles POST /annotate and returns the uploaded image as JPEG with
// the recognized faces framed and labelled.
func (h *FacesHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	if !parseUploadForm(w, r) {
		return
	}
	data, err := readUpload(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, faces, err := h.service.Annotate(r.Context(), data)
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) {
			respondError(w, http.StatusBadRequest, "Invalid image")
			return
		}
		log.Printf("Annotation failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Face-Count", strconv.Itoa(len(faces)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// Compare handles POST /compare with multipart "file1" and "file2".
func (h *FacesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if !parseUploadForm(w, r) {
		return
	}
	first, err := readUpload(r, "file1")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file1 and file2 are required")
		return
	}
	second, err := readUpload(r, "file2")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file1 and file2 are required")
		return
	}

	cmp, err := h.service.Compare(r.Context(), first, second)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrInvalidImage):
			respondError(w, http.StatusBadRequest, "Invalid image")
		case errors.Is(err, recognizer.ErrNoFace):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Printf("Comparison failed: %v", err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, cmp)
}

// Collect handles POST /collect with multipart "name" and "file".
func (h *FacesHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if !parseUploadForm(w, r) {
		return
	}
	name := r.FormValue("name")
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	data, err := readUpload(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.Collect(r.Context(), name, data)
	if err != nil {
		switch {
		case errors.Is(err, facematch.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "invalid name")
		case errors.Is(err, imaging.ErrInvalidImage):
			respondError(w, http.StatusBadRequest, "Invalid image format")
		default:
			log.Printf("Collect for %s failed: %v", sanitizeForLog(name), err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	log.Printf("Collected sample for %s at %s", sanitizeForLog(name), res.Path)
	respondJSON(w, http.StatusOK, CollectResponse{
		Status:   "success",
		Path:     res.Path,
		Enrolled: res.Enrolled,
		FaceID:   res.FaceID,
	})
}

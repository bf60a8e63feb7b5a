package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// PeopleHandler handles gallery inspection and maintenance endpoints.
type PeopleHandler struct {
	service *recognizer.Service
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(svc *recognizer.Service) *PeopleHandler {
	return &PeopleHandler{
		service: svc,
	}
}

// PeopleResponse lists enrolled people.
type PeopleResponse struct {
	People []gallery.Person `json:"people"`
	Faces  int              `json:"faces"`
}

// List returns every enrolled person with a sample count.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people := h.service.People()
	if people == nil {
		people = []gallery.Person{}
	}
	respondJSON(w, http.StatusOK, PeopleResponse{
		People: people,
		Faces:  h.service.Gallery().Len(),
	})
}

// Delete removes all samples of a person.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		respondError(w, http.StatusBadRequest, "invalid name")
		return
	}

	removed, err := h.service.DeletePerson(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, facematch.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "invalid name")
		case errors.Is(err, recognizer.ErrPersonNotFound):
			respondError(w, http.StatusNotFound, "person not found")
		default:
			log.Printf("Failed to delete %s: %v", sanitizeForLog(name), err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	log.Printf("Deleted %d samples of %s", removed, sanitizeForLog(name))
	respondJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"deleted": removed,
	})
}

// Reload replaces the in-memory gallery with the stored encodings.
func (h *PeopleHandler) Reload(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reload(r.Context())
	if err != nil {
		log.Printf("Gallery reload failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces":   n,
		"indexed": h.service.Gallery().Indexed(),
	})
}

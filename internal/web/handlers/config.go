package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service *recognizer.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc *recognizer.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the non-secret runtime configuration
type ConfigResponse struct {
	Engine                string  `json:"engine"`
	Tolerance             float64 `json:"tolerance"`
	Dim                   int     `json:"dim"`
	MaxImageSize          int     `json:"max_image_size"`
	UnknownLabel          string  `json:"unknown_label"`
	AttendanceBackend     string  `json:"attendance_backend"`
	AttendanceOnRecognize bool    `json:"attendance_on_recognize"`
	CollectEnroll         bool    `json:"collect_enroll"`
	KnownFaces            int     `json:"known_faces"`
	Indexed               bool    `json:"indexed"`
	AuthRequired          bool    `json:"auth_required"`
}

// Get returns the active configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	g := h.service.Gallery()
	respondJSON(w, http.StatusOK, ConfigResponse{
		Engine:                h.service.EngineName(),
		Tolerance:             h.config.Recognition.Tolerance,
		Dim:                   h.config.Recognition.Dim,
		MaxImageSize:          h.config.Recognition.MaxImageSize,
		UnknownLabel:          h.config.Recognition.UnknownLabel,
		AttendanceBackend:     h.config.Attendance.Backend,
		AttendanceOnRecognize: h.config.Attendance.OnRecognize,
		CollectEnroll:         h.config.Gallery.CollectEnroll,
		KnownFaces:            g.Len(),
		Indexed:               g.Indexed(),
		AuthRequired:          h.config.Server.APIToken != "",
	})
}

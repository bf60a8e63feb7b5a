package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/engine/enginetest"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

const testDim = 8

var (
	red   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	blue  = color.RGBA{R: 20, G: 20, B: 220, A: 255}
	green = color.RGBA{R: 20, G: 220, B: 20, A: 255}
	black = color.RGBA{A: 255}
)

// testEnv bundles a service wired to in-memory fakes
type testEnv struct {
	svc        *recognizer.Service
	fake       *enginetest.Fake
	store      *mock.MockGalleryWriter
	attendance *mock.MockAttendanceLog
	datasetDir string
}

// newTestEnv creates a service backed by the fake engine and mock stores
func newTestEnv(t *testing.T, opts recognizer.Options, known ...database.KnownFace) *testEnv {
	t.Helper()
	fake := enginetest.NewFake(testDim)
	store := mock.NewMockGalleryWriter(known...)
	attendance := mock.NewMockAttendanceLog()
	g := gallery.New(gallery.Options{Tolerance: 0.6, UnknownLabel: "Unknown"})
	g.Replace(known)

	if opts.DatasetDir == "" {
		opts.DatasetDir = filepath.Join(t.TempDir(), "dataset")
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = 90
	}
	svc := recognizer.New(engine.NewPipeline(fake, 1920, testDim, 90), g, store, attendance, opts)
	svc.SetClock(func() time.Time { return time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC) })
	return &testEnv{svc: svc, fake: fake, store: store, attendance: attendance, datasetDir: opts.DatasetDir}
}

// knownFace builds a gallery entry matching a solid-colour test image
func knownFace(id, name string, c color.Color) database.KnownFace {
	return database.KnownFace{ID: id, Name: name, Descriptor: enginetest.Descriptor(c, testDim)}
}

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Engine:      config.EngineConfig{Kind: config.EngineDlib},
		Recognition: config.RecognitionConfig{Tolerance: 0.6, Dim: testDim, MaxImageSize: 1920, UnknownLabel: "Unknown"},
		Gallery:     config.GalleryConfig{Backend: config.GalleryFile},
		Attendance:  config.AttendanceConfig{Backend: config.AttendanceCSV},
	}
}

// multipartRequest builds a multipart/form-data request from fields and files
func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for field, data := range files {
		part, err := mw.CreateFormFile(field, field+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

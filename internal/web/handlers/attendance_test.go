package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/engine/enginetest"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

func TestAttendanceHandler_List(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	ctx := context.Background()
	env.attendance.Mark(ctx, "Alice", time.Date(2024, 5, 6, 8, 15, 0, 0, time.UTC))
	env.attendance.Mark(ctx, "Bob", time.Date(2024, 5, 7, 8, 20, 0, 0, time.UTC))
	handler := NewAttendanceHandler(env.svc)

	tests := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{"all days", "", []string{"Alice", "Bob"}},
		{"one day", "?date=2024-05-07", []string{"Bob"}},
		{"empty day", "?date=2024-01-01", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance"+tc.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var result AttendanceResponse
			parseJSONResponse(t, recorder, &result)
			if len(result.Records) != len(tc.wantNames) {
				t.Fatalf("expected %d records, got %+v", len(tc.wantNames), result.Records)
			}
			for i, name := range tc.wantNames {
				if result.Records[i].Name != name {
					t.Errorf("expected %q at %d, got %q", name, i, result.Records[i].Name)
				}
			}
		})
	}
}

func TestAttendanceHandler_List_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	handler := NewAttendanceHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance?date=2024-05-06", nil))

	if !strings.Contains(recorder.Body.String(), `"records":[]`) {
		t.Errorf("expected an empty records array, got %s", recorder.Body.String())
	}
}

func TestAttendanceHandler_List_Errors(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	handler := NewAttendanceHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance?date=06.05.2024", nil))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid date, expected YYYY-MM-DD")

	env.attendance.ListError = errors.New("connection refused")
	recorder = httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance", nil))
	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestAttendanceHandler_Disabled(t *testing.T) {
	g := gallery.New(gallery.Options{})
	pipeline := engine.NewPipeline(enginetest.NewFake(testDim), 1920, testDim, 90)
	svc := recognizer.New(pipeline, g, mock.NewMockGalleryWriter(), nil, recognizer.Options{})
	handler := NewAttendanceHandler(svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, recognizer.ErrAttendanceDisabled.Error())
}

func TestAttendanceHandler_Mark(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	handler := NewAttendanceHandler(env.svc)

	for i, wantMarked := range []bool{true, false} {
		req := httptest.NewRequest("POST", "/api/v1/attendance", strings.NewReader(`{"name":"Alice"}`))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		handler.Mark(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var result map[string]any
		parseJSONResponse(t, recorder, &result)
		if result["marked"] != wantMarked {
			t.Errorf("call %d: expected marked=%v, got %v", i, wantMarked, result["marked"])
		}
	}

	records := env.attendance.Records()
	if len(records) != 1 || records[0].Time != "09:30:00" {
		t.Errorf("expected a single row at 09:30:00, got %+v", records)
	}
}

func TestAttendanceHandler_Mark_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"invalid json", `{"name":`, http.StatusBadRequest, "invalid request body"},
		{"empty name", `{"name":""}`, http.StatusBadRequest, "invalid name"},
		{"slash in name", `{"name":"a/b"}`, http.StatusBadRequest, "invalid name"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, recognizer.Options{})
			handler := NewAttendanceHandler(env.svc)

			recorder := httptest.NewRecorder()
			handler.Mark(recorder, httptest.NewRequest("POST", "/api/v1/attendance", strings.NewReader(tc.body)))

			assertStatusCode(t, recorder, tc.wantStatus)
			assertJSONError(t, recorder, tc.wantError)
			if len(env.attendance.Records()) != 0 {
				t.Error("nothing must be recorded on error")
			}
		})
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

func TestPeopleHandler_List(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{},
		knownFace("1", "Bob", blue),
		knownFace("2", "Alice", red),
		knownFace("3", "Alice", red),
	)
	handler := NewPeopleHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/people", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result PeopleResponse
	parseJSONResponse(t, recorder, &result)
	if result.Faces != 3 {
		t.Errorf("expected 3 faces, got %d", result.Faces)
	}
	if len(result.People) != 2 {
		t.Fatalf("expected 2 people, got %+v", result.People)
	}
	if result.People[0].Name != "Alice" || result.People[0].Samples != 2 {
		t.Errorf("expected Alice with 2 samples first, got %+v", result.People[0])
	}
}

func TestPeopleHandler_List_Empty(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	handler := NewPeopleHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/people", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if body := recorder.Body.String(); body != "{\"people\":[],\"faces\":0}\n" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestPeopleHandler_Delete(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{},
		knownFace("1", "Jiří Novák", red),
		knownFace("2", "Bob", blue),
	)
	handler := NewPeopleHandler(env.svc)

	req := httptest.NewRequest("DELETE", "/api/v1/people/jiri%20novak", nil)
	req = requestWithChiParams(req, map[string]string{"name": "jiri%20novak"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["deleted"] != float64(1) {
		t.Errorf("expected 1 deleted sample, got %v", result["deleted"])
	}
	if env.svc.Gallery().Len() != 1 || len(env.store.Faces()) != 1 {
		t.Errorf("expected only Bob left, got gallery %d store %d", env.svc.Gallery().Len(), len(env.store.Faces()))
	}
}

func TestPeopleHandler_Delete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		param      string
		storeErr   error
		wantStatus int
		wantError  string
	}{
		{"unknown person", "Carol", nil, http.StatusNotFound, "person not found"},
		{"blank name", "%20", nil, http.StatusBadRequest, "invalid name"},
		{"bad escape", "%zz", nil, http.StatusBadRequest, "invalid name"},
		{"store failure", "Alice", errors.New("disk full"), http.StatusInternalServerError, "delete person: disk full"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, recognizer.Options{}, knownFace("1", "Alice", red))
			env.store.DeleteError = tc.storeErr
			handler := NewPeopleHandler(env.svc)

			req := httptest.NewRequest("DELETE", "/api/v1/people/x", nil)
			req = requestWithChiParams(req, map[string]string{"name": tc.param})
			recorder := httptest.NewRecorder()

			handler.Delete(recorder, req)

			assertStatusCode(t, recorder, tc.wantStatus)
			assertJSONError(t, recorder, tc.wantError)
		})
	}
}

func TestPeopleHandler_Reload(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{})
	handler := NewPeopleHandler(env.svc)

	// Faces written behind the service's back only show up after a reload.
	env.store.AddKnownFace(context.Background(), knownFace("1", "Alice", red))
	if env.svc.Gallery().Len() != 0 {
		t.Fatal("expected empty gallery before reload")
	}

	recorder := httptest.NewRecorder()
	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/gallery/reload", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["faces"] != float64(1) {
		t.Errorf("expected 1 face, got %v", result["faces"])
	}
	if env.svc.Gallery().Len() != 1 {
		t.Errorf("expected gallery to hold 1 face, got %d", env.svc.Gallery().Len())
	}
}

func TestPeopleHandler_Reload_StoreError(t *testing.T) {
	env := newTestEnv(t, recognizer.Options{}, knownFace("1", "Alice", red))
	env.store.LoadError = errors.New("corrupt file")
	handler := NewPeopleHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/gallery/reload", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "load known faces: corrupt file")
	if env.svc.Gallery().Len() != 1 {
		t.Error("gallery must be kept when reload fails")
	}
}

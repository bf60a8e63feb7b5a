package local

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func sampleFaces() []database.KnownFace {
	return []database.KnownFace{
		{ID: "a1", Name: "Alice", Descriptor: []float32{0.1, 0.2, 0.3}, Source: "dataset/Alice/1.jpg"},
		{ID: "b1", Name: "Bob", Descriptor: []float32{0.4, 0.5, 0.6}},
		{ID: "a2", Name: "Alice", Descriptor: []float32{0.11, 0.21, 0.31}},
	}
}

func TestEncodingsFile_MissingFileIsEmpty(t *testing.T) {
	store := NewEncodingsFile(filepath.Join(t.TempDir(), "none.json"), "dlib")

	faces, err := store.LoadKnownFaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, faces)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEncodingsFile_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "face_encodings.json")
	store := NewEncodingsFile(path, "dlib")

	require.NoError(t, store.SaveKnownFaces(ctx, sampleFaces()))

	got, err := store.LoadKnownFaces(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "dataset/Alice/1.jpg", got[0].Source)
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, got[1].Descriptor)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)
	assert.Contains(t, string(data), `"model":"dlib"`)
	assert.Contains(t, string(data), `"dim":3`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestEncodingsFile_AddAndDeletePerson(t *testing.T) {
	ctx := context.Background()
	store := NewEncodingsFile(filepath.Join(t.TempDir(), "enc.json"), "")
	require.NoError(t, store.SaveKnownFaces(ctx, sampleFaces()))

	require.NoError(t, store.AddKnownFace(ctx, database.KnownFace{ID: "c1", Name: "Jiří Novák", Descriptor: []float32{1, 1, 1}}))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	removed, err := store.DeletePerson(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = store.DeletePerson(ctx, "jiri-novak")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = store.DeletePerson(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	faces, err := store.LoadKnownFaces(ctx)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, "Bob", faces[0].Name)
}

func TestEncodingsFile_LegacyDocumentWithoutIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enc.json")
	doc := `{"encodings":[[0.1,0.2],[0.3,0.4]],"names":["Alice","Bob"]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	faces, err := NewEncodingsFile(path, "").LoadKnownFaces(context.Background())
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.NotEmpty(t, faces[0].ID)
	assert.NotEqual(t, faces[0].ID, faces[1].ID)
}

func TestEncodingsFile_Inconsistent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"names mismatch", `{"encodings":[[0.1]],"names":["A","B"]}`},
		{"ids mismatch", `{"encodings":[[0.1]],"names":["A"],"ids":["x","y"]}`},
		{"future version", `{"version":2,"encodings":[],"names":[]}`},
		{"not json", `{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "enc.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			_, err := NewEncodingsFile(path, "").LoadKnownFaces(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestEnsureEncodings(t *testing.T) {
	ctx := context.Background()
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/good.json":
			w.Write([]byte(`{"version":1,"dim":2,"encodings":[[0.1,0.2]],"names":["Alice"],"ids":["x"]}`))
		case "/bad.json":
			w.Write([]byte(`{"encodings":[[0.1]],"names":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("no url", func(t *testing.T) {
		downloaded, err := EnsureEncodings(ctx, "", filepath.Join(t.TempDir(), "enc.json"))
		require.NoError(t, err)
		assert.False(t, downloaded)
	})

	t.Run("downloads when missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "enc.json")
		downloaded, err := EnsureEncodings(ctx, server.URL+"/good.json", path)
		require.NoError(t, err)
		assert.True(t, downloaded)

		faces, err := NewEncodingsFile(path, "").LoadKnownFaces(ctx)
		require.NoError(t, err)
		require.Len(t, faces, 1)
		assert.Equal(t, "Alice", faces[0].Name)

		before := hits
		downloaded, err = EnsureEncodings(ctx, server.URL+"/good.json", path)
		require.NoError(t, err)
		assert.False(t, downloaded)
		assert.Equal(t, before, hits, "existing file must not be downloaded again")
	})

	t.Run("invalid document is not cached", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "enc.json")
		_, err := EnsureEncodings(ctx, server.URL+"/bad.json", path)
		require.Error(t, err)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("http error", func(t *testing.T) {
		_, err := Download(ctx, server.URL+"/missing.json", filepath.Join(t.TempDir(), "enc.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

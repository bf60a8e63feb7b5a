// Package local implements the file-based gallery and attendance stores.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const encodingsVersion = 1

// maxEncodingsDownload caps the size of a downloaded encodings file.
const maxEncodingsDownload = 256 << 20

// encodingsDocument is the on-disk layout: parallel arrays indexed together.
type encodingsDocument struct {
	Version   int         `json:"version"`
	Model     string      `json:"model,omitempty"`
	Dim       int         `json:"dim"`
	Encodings [][]float32 `json:"encodings"`
	Names     []string    `json:"names"`
	IDs       []string    `json:"ids,omitempty"`
	Sources   []string    `json:"sources,omitempty"`
}

// EncodingsFile stores the gallery as a single JSON document.
type EncodingsFile struct {
	path  string
	model string
	mu    sync.Mutex
}

// NewEncodingsFile creates a store backed by path. model is recorded in the
// document when it is written.
func NewEncodingsFile(path, model string) *EncodingsFile {
	return &EncodingsFile{path: path, model: model}
}

// Path returns the file location.
func (f *EncodingsFile) Path() string {
	return f.path
}

// LoadKnownFaces reads the document. A missing file is an empty gallery.
func (f *EncodingsFile) LoadKnownFaces(ctx context.Context) ([]database.KnownFace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Count returns the number of stored faces.
func (f *EncodingsFile) Count(ctx context.Context) (int, error) {
	faces, err := f.LoadKnownFaces(ctx)
	if err != nil {
		return 0, err
	}
	return len(faces), nil
}

// SaveKnownFaces replaces the document.
func (f *EncodingsFile) SaveKnownFaces(ctx context.Context, faces []database.KnownFace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(faces)
}

// AddKnownFace appends one face.
func (f *EncodingsFile) AddKnownFace(ctx context.Context, face database.KnownFace) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	faces, err := f.load()
	if err != nil {
		return err
	}
	return f.save(append(faces, face))
}

// DeletePerson removes every face whose name matches name after normalization.
func (f *EncodingsFile) DeletePerson(ctx context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	faces, err := f.load()
	if err != nil {
		return 0, err
	}
	kept := faces[:0]
	for _, face := range faces {
		if !facematch.SameName(face.Name, name) {
			kept = append(kept, face)
		}
	}
	removed := len(faces) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := f.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (f *EncodingsFile) load() ([]database.KnownFace, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read encodings: %w", err)
	}
	return decodeEncodings(data)
}

func decodeEncodings(data []byte) ([]database.KnownFace, error) {
	var doc encodingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse encodings: %w", err)
	}
	if doc.Version > encodingsVersion {
		return nil, fmt.Errorf("unsupported encodings version %d", doc.Version)
	}
	if len(doc.Encodings) != len(doc.Names) {
		return nil, fmt.Errorf("encodings file is inconsistent: %d encodings, %d names", len(doc.Encodings), len(doc.Names))
	}
	if len(doc.IDs) != 0 && len(doc.IDs) != len(doc.Names) {
		return nil, fmt.Errorf("encodings file is inconsistent: %d ids, %d names", len(doc.IDs), len(doc.Names))
	}
	if len(doc.Sources) != 0 && len(doc.Sources) != len(doc.Names) {
		return nil, fmt.Errorf("encodings file is inconsistent: %d sources, %d names", len(doc.Sources), len(doc.Names))
	}

	faces := make([]database.KnownFace, len(doc.Names))
	for i := range doc.Names {
		faces[i] = database.KnownFace{
			Name:       doc.Names[i],
			Descriptor: doc.Encodings[i],
		}
		if len(doc.IDs) > 0 && doc.IDs[i] != "" {
			faces[i].ID = doc.IDs[i]
		} else {
			// Files produced by older tools carry no ids.
			faces[i].ID = uuid.NewString()
		}
		if len(doc.Sources) > 0 {
			faces[i].Source = doc.Sources[i]
		}
	}
	return faces, nil
}

func (f *EncodingsFile) save(faces []database.KnownFace) error {
	doc := encodingsDocument{
		Version:   encodingsVersion,
		Model:     f.model,
		Encodings: make([][]float32, len(faces)),
		Names:     make([]string, len(faces)),
		IDs:       make([]string, len(faces)),
		Sources:   make([]string, len(faces)),
	}
	for i, face := range faces {
		doc.Encodings[i] = face.Descriptor
		doc.Names[i] = face.Name
		doc.IDs[i] = face.ID
		doc.Sources[i] = face.Source
		if doc.Dim == 0 {
			doc.Dim = len(face.Descriptor)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal encodings: %w", err)
	}
	return writeFileAtomic(f.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Download fetches an encodings document from url, checks that it parses and
// stores it at path.
func Download(ctx context.Context, url, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download encodings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download encodings: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEncodingsDownload))
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	faces, err := decodeEncodings(data)
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return 0, err
	}
	return len(faces), nil
}

// EnsureEncodings downloads url into path when path does not exist yet.
// It reports whether a download happened.
func EnsureEncodings(ctx context.Context, url, path string) (bool, error) {
	if url == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if _, err := Download(ctx, url, path); err != nil {
		return false, err
	}
	return true, nil
}

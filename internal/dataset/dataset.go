// Package dataset reads and writes the labelled sample tree
// dataset/<Person>/<image>.{jpg,jpeg,png} and encodes it into known faces.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// Sample is one labelled image.
type Sample struct {
	Person string
	Path   string
}

var sampleExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// IsSampleFile reports whether name has a supported image extension.
func IsSampleFile(name string) bool {
	return sampleExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan lists samples sorted by person and file name. A missing dir is
// created and yields no samples.
func Scan(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dataset directory: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset directory: %w", err)
	}

	var samples []Sample
	for _, person := range entries {
		if !person.IsDir() || strings.HasPrefix(person.Name(), ".") {
			continue
		}
		personDir := filepath.Join(dir, person.Name())
		files, err := os.ReadDir(personDir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", personDir, err)
		}
		for _, f := range files {
			if f.IsDir() || !IsSampleFile(f.Name()) {
				continue
			}
			samples = append(samples, Sample{Person: person.Name(), Path: filepath.Join(personDir, f.Name())})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Person != samples[j].Person {
			return samples[i].Person < samples[j].Person
		}
		return samples[i].Path < samples[j].Path
	})
	return samples, nil
}

// Skipped is a sample that produced no known face.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EncodeResult is the outcome of encoding a dataset.
type EncodeResult struct {
	Images  int
	Faces   []database.KnownFace
	Skipped []Skipped
}

// People returns the number of distinct names among the encoded faces.
func (r *EncodeResult) People() int {
	seen := make(map[string]struct{})
	for _, f := range r.Faces {
		seen[f.Name] = struct{}{}
	}
	return len(seen)
}

// Progress is called after every processed sample.
type Progress func(done, total int)

// noFaceReason is reported for images in which the engine found no face.
const noFaceReason = "no face found"

// Encode computes one known face per sample using the first detected face.
// Samples without a face or that fail are reported in Skipped. The faces
// keep the order of samples. Only context cancellation aborts the run.
func Encode(ctx context.Context, samples []Sample, p *engine.Pipeline, workers int, progress Progress) (*EncodeResult, error) {
	if workers <= 0 {
		workers = constants.DefaultEncodeWorkers
	}

	type outcome struct {
		face   *database.KnownFace
		reason string
	}
	outcomes := make([]outcome, len(samples))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, s := range samples {
		wg.Add(1)
		go func(i int, s Sample) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = outcome{reason: ctx.Err().Error()}
				return
			}
			defer func() { <-sem }()

			face, err := encodeSample(ctx, s, p)
			if err != nil {
				outcomes[i] = outcome{reason: err.Error()}
			} else {
				outcomes[i] = outcome{face: face}
			}

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if progress != nil {
				progress(n, len(samples))
			}
		}(i, s)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &EncodeResult{Images: len(samples)}
	for i, o := range outcomes {
		if o.face != nil {
			result.Faces = append(result.Faces, *o.face)
			continue
		}
		result.Skipped = append(result.Skipped, Skipped{Path: samples[i].Path, Reason: o.reason})
	}
	return result, nil
}

func encodeSample(ctx context.Context, s Sample, p *engine.Pipeline) (*database.KnownFace, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	res, err := p.Process(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(res.Detections) == 0 {
		return nil, errors.New(noFaceReason)
	}
	return &database.KnownFace{
		ID:         uuid.NewString(),
		Name:       s.Person,
		Descriptor: res.Detections[0].Descriptor,
		Source:     s.Path,
		CreatedAt:  time.Now(),
	}, nil
}

// SaveSample stores img as dir/<name>/<YYYYmmdd_HHMMSS>.jpg and returns the
// path. Existing files are not overwritten; a _2, _3, ... suffix is added.
func SaveSample(dir, name string, img image.Image, now time.Time, quality int) (string, error) {
	name, err := facematch.ValidatePersonName(name)
	if err != nil {
		return "", err
	}

	personDir := filepath.Join(dir, name)
	if err := os.MkdirAll(personDir, 0o755); err != nil {
		return "", fmt.Errorf("create person directory: %w", err)
	}

	base := now.Format(constants.SampleFileLayout)
	for n := 1; ; n++ {
		fileName := base + ".jpg"
		if n > 1 {
			fileName = fmt.Sprintf("%s_%d.jpg", base, n)
		}
		path := filepath.Join(personDir, fileName)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create sample file: %w", err)
		}
		if err := imaging.EncodeJPEG(f, img, quality); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close sample file: %w", err)
		}
		return path, nil
	}
}

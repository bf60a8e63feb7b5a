//go:build dlib

// Package dlib runs face detection and 128-d descriptor extraction locally
// through dlib (github.com/Kagami/go-face). It needs cgo and the dlib, BLAS,
// LAPACK and libjpeg development packages, and is only compiled with the
// "dlib" build tag.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goface "github.com/Kagami/go-face"

	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Available reports whether the dlib engine was compiled in.
const Available = true

// Engine is an engine.Engine backed by a dlib recognizer.
type Engine struct {
	rec *goface.Recognizer
	mu  sync.Mutex // dlib recognizer is not safe for concurrent use
}

// New loads the dlib models from modelDir (shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat, mmod_human_face_detector.dat).
func New(modelDir string) (engine.Engine, error) {
	rec, err := goface.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize recognizer from %s: %w", modelDir, err)
	}
	return &Engine{rec: rec}, nil
}

// Detect implements engine.Engine. Only JPEG input is supported by dlib.
func (e *Engine) Detect(ctx context.Context, jpeg []byte) ([]engine.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return nil, errors.New("recognizer closed")
	}

	faces, err := e.rec.Recognize(jpeg)
	if err != nil {
		return nil, err
	}

	dets := make([]engine.Detection, 0, len(faces))
	for _, f := range faces {
		desc := make([]float32, len(f.Descriptor))
		copy(desc, f.Descriptor[:])
		dets = append(dets, engine.Detection{
			Location:   facematch.FromRect(f.Rectangle),
			Descriptor: desc,
			Score:      1,
		})
	}
	return dets, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string {
	return "dlib"
}

// Close releases the native recognizer.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}

//go:build !dlib

package dlib

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/engine"
)

// Available reports whether the dlib engine was compiled in.
const Available = false

// ErrNotCompiled is returned by New in builds without the "dlib" tag.
var ErrNotCompiled = errors.New("dlib engine not compiled in (rebuild with -tags dlib, or set FACE_ENGINE=remote)")

// New always fails in builds without dlib support.
func New(modelDir string) (engine.Engine, error) {
	return nil, ErrNotCompiled
}

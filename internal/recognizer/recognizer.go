// Package recognizer implements the face-attendance operations on top of the
// engine pipeline, the in-memory gallery and the configured stores.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/dataset"
	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

var (
	// ErrNoFace is returned when an image that must contain a face has none.
	ErrNoFace = errors.New("no face found")
	// ErrPersonNotFound is returned when deleting a name with no samples.
	ErrPersonNotFound = errors.New("person not found")
	// ErrEnrollRunning is returned when an enrollment is already in progress.
	ErrEnrollRunning = errors.New("enrollment already running")
	// ErrInvalidDate is returned for attendance dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
	// ErrEmptyDataset is returned by Enroll when no sample yields a face. The
	// stored gallery is left untouched.
	ErrEmptyDataset = errors.New("dataset has no encodable faces")
	// ErrAttendanceDisabled is returned when no attendance log is configured.
	ErrAttendanceDisabled = errors.New("attendance log not configured")
)

// Options configures a Service.
type Options struct {
	DatasetDir            string
	Tolerance             float64
	UnknownLabel          string
	JPEGQuality           int
	EncodeWorkers         int
	CollectEnroll         bool // encode collected samples into the gallery right away
	AttendanceOnRecognize bool // mark attendance on every recognition
}

// Service is safe for concurrent use.
type Service struct {
	pipeline   *engine.Pipeline
	gallery    *gallery.Gallery
	store      database.GalleryWriter
	attendance database.AttendanceLog
	opts       Options
	now        func() time.Time

	enrollMu sync.Mutex
}

// New creates a service. attendance may be nil.
func New(p *engine.Pipeline, g *gallery.Gallery, store database.GalleryWriter, attendance database.AttendanceLog, opts Options) *Service {
	if opts.UnknownLabel == "" {
		opts.UnknownLabel = "Unknown"
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = constants.DefaultTolerance
	}
	return &Service{
		pipeline:   p,
		gallery:    g,
		store:      store,
		attendance: attendance,
		opts:       opts,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for attendance and sample names.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Gallery returns the in-memory gallery.
func (s *Service) Gallery() *gallery.Gallery {
	return s.gallery
}

// Options returns the service configuration.
func (s *Service) Options() Options {
	return s.opts
}

// EngineName returns the name of the underlying face engine.
func (s *Service) EngineName() string {
	return s.pipeline.Engine().Name()
}

// RecognizedFace is one face found in an image.
type RecognizedFace struct {
	Name       string             `json:"name"`
	Location   facematch.Location `json:"location"`
	Distance   *float64           `json:"distance,omitempty"` // nil when the gallery has nothing comparable
	Confidence float64            `json:"confidence"`
	Known      bool               `json:"known"`
	Marked     bool               `json:"attendance_marked,omitempty"`
}

// RecognizeOptions tweak a single Recognize call.
type RecognizeOptions struct {
	MarkAttendance bool
}

// Recognition is the result of Recognize.
type Recognition struct {
	Image image.Image
	Faces []RecognizedFace
}

// Names returns the names of all faces in order, unknown faces included.
func (r *Recognition) Names() []string {
	names := make([]string, len(r.Faces))
	for i, f := range r.Faces {
		names[i] = f.Name
	}
	return names
}

// Recognize detects faces in data and matches each against the gallery.
func (s *Service) Recognize(ctx context.Context, data []byte, opts RecognizeOptions) (*Recognition, error) {
	res, err := s.pipeline.Process(ctx, data)
	if err != nil {
		return nil, err
	}

	faces := make([]RecognizedFace, len(res.Detections))
	for i, d := range res.Detections {
		m := s.gallery.Match(d.Descriptor)
		faces[i] = RecognizedFace{
			Name:       m.Name,
			Location:   d.Location,
			Confidence: m.Confidence,
			Known:      m.Matched,
		}
		if m.Index >= 0 {
			dist := m.Distance
			faces[i].Distance = &dist
		}
	}

	if opts.MarkAttendance || s.opts.AttendanceOnRecognize {
		s.markAttendance(ctx, faces)
	}
	return &Recognition{Image: res.Image, Faces: faces}, nil
}

// markAttendance marks every known face once. Failures are logged only.
func (s *Service) markAttendance(ctx context.Context, faces []RecognizedFace) {
	if s.attendance == nil {
		return
	}
	at := s.now()
	seen := make(map[string]bool)
	for i := range faces {
		if !faces[i].Known || seen[faces[i].Name] {
			continue
		}
		seen[faces[i].Name] = true
		marked, err := s.attendance.Mark(ctx, faces[i].Name, at)
		if err != nil {
			log.Printf("Failed to mark attendance for %s: %v", sanitizeForLog(faces[i].Name), err)
			continue
		}
		faces[i].Marked = marked
	}
}

// Boxes converts recognized faces into annotation boxes.
func Boxes(faces []RecognizedFace) []imaging.Box {
	boxes := make([]imaging.Box, len(faces))
	for i, f := range faces {
		boxes[i] = imaging.Box{Location: f.Location, Name: f.Name, Confidence: f.Confidence, Known: f.Known}
	}
	return boxes
}

// Annotate recognizes faces in data and returns the image as JPEG with the
// faces framed and labelled.
func (s *Service) Annotate(ctx context.Context, data []byte) ([]byte, []RecognizedFace, error) {
	rec, err := s.Recognize(ctx, data, RecognizeOptions{})
	if err != nil {
		return nil, nil, err
	}
	out, err := imaging.JPEGBytes(imaging.Annotate(rec.Image, Boxes(rec.Faces)), s.opts.JPEGQuality)
	if err != nil {
		return nil, nil, err
	}
	return out, rec.Faces, nil
}

// CollectResult describes a stored sample.
type CollectResult struct {
	Path     string
	Enrolled bool   // the sample was also added to the gallery
	FaceID   string // ID of the enrolled face
}

// Collect stores an uploaded sample under the person's dataset directory.
func (s *Service) Collect(ctx context.Context, name string, data []byte) (*CollectResult, error) {
	name, err := facematch.ValidatePersonName(name)
	if err != nil {
		return nil, err
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	path, err := dataset.SaveSample(s.opts.DatasetDir, name, img, s.now(), s.opts.JPEGQuality)
	if err != nil {
		return nil, err
	}
	result := &CollectResult{Path: path}
	if !s.opts.CollectEnroll {
		return result, nil
	}

	// The sample is saved; failures below only leave it unenrolled.
	dets, err := s.pipeline.DetectImage(ctx, img)
	if err != nil {
		log.Printf("Collected sample %s not enrolled: %v", sanitizeForLog(path), err)
		return result, nil
	}
	if len(dets) == 0 {
		log.Printf("Collected sample %s has no face, not enrolled", sanitizeForLog(path))
		return result, nil
	}

	face := database.KnownFace{
		ID:         uuid.NewString(),
		Name:       name,
		Descriptor: dets[0].Descriptor,
		Source:     path,
		CreatedAt:  s.now(),
	}
	if err := s.store.AddKnownFace(ctx, face); err != nil {
		log.Printf("Collected sample %s not stored as known face: %v", sanitizeForLog(path), err)
		return result, nil
	}
	s.gallery.Add(face)
	result.Enrolled = true
	result.FaceID = face.ID
	return result, nil
}

// Comparison is the result of comparing two faces.
type Comparison struct {
	Distance   float64 `json:"distance"`
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// Compare compares the first face of each image.
func (s *Service) Compare(ctx context.Context, a, b []byte) (*Comparison, error) {
	da, err := s.firstDescriptor(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("first image: %w", err)
	}
	db, err := s.firstDescriptor(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("second image: %w", err)
	}
	d := facematch.Distance(da, db)
	return &Comparison{
		Distance:   d,
		Match:      d <= s.opts.Tolerance,
		Confidence: facematch.Confidence(d),
	}, nil
}

func (s *Service) firstDescriptor(ctx context.Context, data []byte) ([]float32, error) {
	res, err := s.pipeline.Process(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(res.Detections) == 0 {
		return nil, ErrNoFace
	}
	return res.Detections[0].Descriptor, nil
}

// Reload replaces the gallery with the faces in the store.
func (s *Service) Reload(ctx context.Context) (int, error) {
	faces, err := s.store.LoadKnownFaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("load known faces: %w", err)
	}
	s.gallery.Replace(faces)
	return len(faces), nil
}

// EnrollResult summarizes an enrollment run.
type EnrollResult struct {
	Images  int               `json:"images"`
	Faces   int               `json:"faces"`
	People  int               `json:"people"`
	Skipped []dataset.Skipped `json:"skipped,omitempty"`
}

// Enroll encodes the whole dataset, replaces the stored gallery with the
// result and swaps the in-memory gallery. Only one enrollment runs at a time.
func (s *Service) Enroll(ctx context.Context, progress dataset.Progress) (*EnrollResult, error) {
	if !s.enrollMu.TryLock() {
		return nil, ErrEnrollRunning
	}
	defer s.enrollMu.Unlock()

	samples, err := dataset.Scan(s.opts.DatasetDir)
	if err != nil {
		return nil, err
	}
	encoded, err := dataset.Encode(ctx, samples, s.pipeline, s.opts.EncodeWorkers, progress)
	if err != nil {
		return nil, err
	}
	if len(encoded.Faces) == 0 {
		return nil, fmt.Errorf("%w: %d images in %s, %d skipped",
			ErrEmptyDataset, encoded.Images, s.opts.DatasetDir, len(encoded.Skipped))
	}
	if err := s.store.SaveKnownFaces(ctx, encoded.Faces); err != nil {
		return nil, fmt.Errorf("save known faces: %w", err)
	}
	s.gallery.Replace(encoded.Faces)

	return &EnrollResult{
		Images:  encoded.Images,
		Faces:   len(encoded.Faces),
		People:  encoded.People(),
		Skipped: encoded.Skipped,
	}, nil
}

// DeletePerson removes a person from the store and the gallery.
func (s *Service) DeletePerson(ctx context.Context, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, facematch.ErrInvalidName
	}
	removed, err := s.store.DeletePerson(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("delete person: %w", err)
	}
	s.gallery.RemovePerson(name)
	if removed == 0 {
		return 0, ErrPersonNotFound
	}
	return removed, nil
}

// People lists enrolled names with sample counts.
func (s *Service) People() []gallery.Person {
	return s.gallery.People()
}

// Attendance returns the attendance rows of day (YYYY-MM-DD), or all rows
// when day is empty.
func (s *Service) Attendance(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	if s.attendance == nil {
		return nil, ErrAttendanceDisabled
	}
	if day != "" {
		if _, err := time.Parse(constants.DateLayout, day); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, day)
		}
	}
	return s.attendance.List(ctx, day)
}

// MarkAttendance records name as present now.
func (s *Service) MarkAttendance(ctx context.Context, name string) (bool, error) {
	if s.attendance == nil {
		return false, ErrAttendanceDisabled
	}
	name, err := facematch.ValidatePersonName(name)
	if err != nil {
		return false, err
	}
	return s.attendance.Mark(ctx, name, s.now())
}

// sanitizeForLog removes newlines to prevent log injection.
func sanitizeForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

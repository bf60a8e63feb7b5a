package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/local"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/engine/dlib"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// runtime holds everything a command needs to talk to the recognizer.
type runtime struct {
	service *recognizer.Service
	gallery *gallery.Gallery
	closers []io.Closer
}

// Close releases the engine and database pools in reverse order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			fmt.Printf("Warning: close failed: %v\n", err)
		}
	}
}

// newEngine builds the face engine selected by FACE_ENGINE.
func newEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Kind {
	case config.EngineRemote:
		fmt.Printf("Using remote face engine at %s\n", cfg.Engine.URL)
		return engine.NewRemoteEngine(cfg.Engine.URL), nil
	case config.EngineDlib:
		fmt.Printf("Loading dlib models from %s...\n", cfg.Engine.ModelDir)
		return dlib.New(cfg.Engine.ModelDir)
	default:
		return nil, fmt.Errorf("unknown face engine %q", cfg.Engine.Kind)
	}
}

// registerBackends opens the configured stores and registers them with the
// database provider. The returned closers own the connection pools.
func registerBackends(ctx context.Context, cfg *config.Config, model string) ([]io.Closer, error) {
	var closers []io.Closer
	var pgPool *postgres.Pool

	openPostgres := func() (*postgres.Pool, error) {
		if pgPool != nil {
			return pgPool, nil
		}
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		pgPool = pool
		closers = append(closers, pool)
		return pool, nil
	}
	fail := func(err error) ([]io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	switch cfg.Gallery.Backend {
	case config.GalleryPostgres:
		pool, err := openPostgres()
		if err != nil {
			return fail(err)
		}
		repo := postgres.NewKnownFaceRepository(pool)
		database.RegisterGalleryBackend(config.GalleryPostgres, func() database.GalleryWriter { return repo })
		fmt.Printf("Using PostgreSQL gallery\n")
	default:
		downloaded, err := local.EnsureEncodings(ctx, cfg.Gallery.EncodingsURL, cfg.Gallery.EncodingsPath)
		if err != nil {
			fmt.Printf("Error: failed to fetch encodings, starting with an empty gallery: %v\n", err)
		} else if downloaded {
			fmt.Printf("Downloaded encodings to %s\n", cfg.Gallery.EncodingsPath)
		}
		file := local.NewEncodingsFile(cfg.Gallery.EncodingsPath, model)
		database.RegisterGalleryBackend(config.GalleryFile, func() database.GalleryWriter { return file })
		fmt.Printf("Using encodings file %s\n", cfg.Gallery.EncodingsPath)
	}

	switch cfg.Attendance.Backend {
	case config.AttendancePostgres:
		pool, err := openPostgres()
		if err != nil {
			return fail(err)
		}
		repo := postgres.NewAttendanceRepository(pool)
		database.RegisterAttendanceBackend(config.AttendancePostgres, func() database.AttendanceLog { return repo })
	case config.AttendanceMariaDB:
		pool, err := mariadb.NewPool(cfg.Attendance.MariaDBDSN)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool)
		if err := pool.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("failed to create attendance table: %w", err))
		}
		repo := mariadb.NewAttendanceRepository(pool)
		database.RegisterAttendanceBackend(config.AttendanceMariaDB, func() database.AttendanceLog { return repo })
	default:
		csvLog := local.NewCSVAttendance(cfg.Attendance.CSVPath)
		database.RegisterAttendanceBackend(config.AttendanceCSV, func() database.AttendanceLog { return csvLog })
	}
	fmt.Printf("Attendance log: %s\n", database.AttendanceBackendName())

	return closers, nil
}

// newRuntime validates cfg, builds the engine and stores and loads the gallery.
func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{closers: []io.Closer{eng}}

	closers, err := registerBackends(ctx, cfg, eng.Name())
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closers...)

	store, err := database.GetGalleryWriter(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	attendance, err := database.GetAttendanceLog(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	quality := cfg.Recognition.JPEGQuality
	if quality <= 0 {
		quality = constants.DefaultJPEGQuality
	}
	pipeline := engine.NewPipeline(eng, cfg.Recognition.MaxImageSize, cfg.Recognition.Dim, quality)

	rt.gallery = gallery.New(gallery.Options{
		Tolerance:    cfg.Recognition.Tolerance,
		UnknownLabel: cfg.Recognition.UnknownLabel,
		HNSWMinSize:  cfg.Gallery.HNSWMinSize,
		Candidates:   cfg.Gallery.HNSWCandidates,
		IndexPath:    cfg.Gallery.HNSWIndexPath,
	})
	rt.service = recognizer.New(pipeline, rt.gallery, store, attendance, recognizer.Options{
		DatasetDir:            cfg.Gallery.DatasetDir,
		Tolerance:             cfg.Recognition.Tolerance,
		UnknownLabel:          cfg.Recognition.UnknownLabel,
		JPEGQuality:           quality,
		EncodeWorkers:         cfg.Gallery.EncodeWorkers,
		CollectEnroll:         cfg.Gallery.CollectEnroll,
		AttendanceOnRecognize: cfg.Attendance.OnRecognize,
	})

	n, err := rt.service.Reload(ctx)
	if err != nil {
		// The service still starts; encode or reload fills the gallery later.
		fmt.Printf("Error: failed to load known faces: %v\n", err)
	}
	if n == 0 {
		fmt.Printf("Warning: no known faces loaded, run 'face-attendance encode' first\n")
	} else {
		fmt.Printf("Loaded %d known faces of %d people\n", n, len(rt.service.People()))
	}
	if rt.gallery.Indexed() {
		fmt.Printf("HNSW index enabled for %d faces\n", n)
	}
	return rt, nil
}

// saveIndex persists the gallery HNSW graph when an index path is configured.
func (rt *runtime) saveIndex(indexPath string) {
	if indexPath == "" {
		return
	}
	if err := rt.gallery.SaveIndex(); err != nil {
		fmt.Printf("Warning: failed to save HNSW index: %v\n", err)
		return
	}
	fmt.Printf("HNSW index saved to %s\n", indexPath)
}

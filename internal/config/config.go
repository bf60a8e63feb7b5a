package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Engine kinds.
const (
	EngineDlib   = "dlib"
	EngineRemote = "remote"
)

// Gallery backends.
const (
	GalleryFile     = "file"
	GalleryPostgres = "postgres"
)

// Attendance backends.
const (
	AttendanceCSV      = "csv"
	AttendancePostgres = "postgres"
	AttendanceMariaDB  = "mariadb"
)

type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	Recognition RecognitionConfig
	Gallery     GalleryConfig
	Attendance  AttendanceConfig
	Database    DatabaseConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	APIToken       string   // empty disables token auth on mutating API routes
	AllowedOrigins []string // CORS origins besides localhost
}

type EngineConfig struct {
	Kind     string // dlib or remote
	ModelDir string // dlib model directory (shape predictor, resnet, detector)
	URL      string // base URL of the remote face-embedding service
}

type RecognitionConfig struct {
	Tolerance    float64 `yaml:"tolerance"`
	MaxImageSize int     `yaml:"max_image_size"`
	Dim          int     `yaml:"dim"`
	RemoteDim    int     `yaml:"remote_dim"` // default dim when FACE_ENGINE=remote
	UnknownLabel string  `yaml:"unknown_label"`
	JPEGQuality  int     `yaml:"jpeg_quality"`
}

type GalleryConfig struct {
	Backend        string // file or postgres
	EncodingsPath  string
	EncodingsURL   string // optional remote copy, downloaded when EncodingsPath is missing
	DatasetDir     string
	HNSWIndexPath  string // optional, empty keeps the index in memory only
	HNSWMinSize    int    `yaml:"hnsw_min_size"`
	HNSWCandidates int    `yaml:"hnsw_candidates"`
	CollectEnroll  bool   // encode collected samples into the gallery immediately
	EncodeWorkers  int
}

type AttendanceConfig struct {
	Backend     string
	CSVPath     string
	MariaDBDSN  string
	OnRecognize bool
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int
	MaxIdleConns int
}

type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Gallery     GalleryConfig     `yaml:"gallery"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float from the environment, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool accepts the usual strconv spellings; anything else yields defaultVal.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// Embedded file, a parse failure is a build defect.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	engineKind := strings.ToLower(envString("FACE_ENGINE", EngineDlib))
	dim := d.Recognition.Dim
	if engineKind == EngineRemote {
		dim = d.Recognition.RemoteDim
	}

	return &Config{
		Server: ServerConfig{
			Host:           envString("HOST", "0.0.0.0"),
			Port:           envInt("PORT", 8000),
			APIToken:       os.Getenv("API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Engine: EngineConfig{
			Kind:     engineKind,
			ModelDir: envString("FACE_MODEL_DIR", "models"),
			URL:      envString("FACE_ENGINE_URL", "http://localhost:8001"),
		},
		Recognition: RecognitionConfig{
			Tolerance:    envFloat("FACE_TOLERANCE", d.Recognition.Tolerance),
			MaxImageSize: envInt("FACE_MAX_IMAGE_SIZE", d.Recognition.MaxImageSize),
			Dim:          envInt("FACE_DIM", dim),
			UnknownLabel: envString("FACE_UNKNOWN_LABEL", d.Recognition.UnknownLabel),
			JPEGQuality:  d.Recognition.JPEGQuality,
		},
		Gallery: GalleryConfig{
			Backend:        strings.ToLower(envString("GALLERY_BACKEND", GalleryFile)),
			EncodingsPath:  envString("ENCODINGS_PATH", "face_encodings.json"),
			EncodingsURL:   os.Getenv("ENCODINGS_URL"),
			DatasetDir:     envString("DATASET_DIR", "dataset"),
			HNSWIndexPath:  os.Getenv("HNSW_INDEX_PATH"),
			HNSWMinSize:    envInt("HNSW_MIN_SIZE", d.Gallery.HNSWMinSize),
			HNSWCandidates: envInt("HNSW_CANDIDATES", d.Gallery.HNSWCandidates),
			CollectEnroll:  envBool("COLLECT_ENROLL", false),
			EncodeWorkers:  envInt("ENCODE_WORKERS", constants.DefaultEncodeWorkers),
		},
		Attendance: AttendanceConfig{
			Backend:     strings.ToLower(envString("ATTENDANCE_BACKEND", AttendanceCSV)),
			CSVPath:     envString("ATTENDANCE_CSV_PATH", "attendance.csv"),
			MariaDBDSN:  os.Getenv("ATTENDANCE_MARIADB_DSN"),
			OnRecognize: envBool("ATTENDANCE_ON_RECOGNIZE", false),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}

// Validate reports configuration combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineDlib, EngineRemote:
	default:
		return fmt.Errorf("unknown FACE_ENGINE %q (expected %s or %s)", c.Engine.Kind, EngineDlib, EngineRemote)
	}
	if c.Engine.Kind == EngineRemote && c.Engine.URL == "" {
		return errors.New("FACE_ENGINE_URL is required for the remote engine")
	}

	switch c.Gallery.Backend {
	case GalleryFile:
	case GalleryPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres gallery backend")
		}
	default:
		return fmt.Errorf("unknown GALLERY_BACKEND %q", c.Gallery.Backend)
	}

	switch c.Attendance.Backend {
	case AttendanceCSV:
	case AttendancePostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres attendance backend")
		}
	case AttendanceMariaDB:
		if c.Attendance.MariaDBDSN == "" {
			return errors.New("ATTENDANCE_MARIADB_DSN is required for the mariadb attendance backend")
		}
	default:
		return fmt.Errorf("unknown ATTENDANCE_BACKEND %q", c.Attendance.Backend)
	}

	if c.Recognition.Tolerance <= 0 {
		return errors.New("FACE_TOLERANCE must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

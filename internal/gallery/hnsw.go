package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// HNSW parameters for face descriptors
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswEfSearch is the search candidate pool size.
	hnswEfSearch = 100
)

const indexMetadataVersion = 1

// IndexMetadata is stored next to a persisted graph in a .meta file and used
// to detect a graph that no longer matches the gallery.
type IndexMetadata struct {
	FaceCount int       `json:"face_count"`
	Dim       int       `json:"dim"`
	BuildTime time.Time `json:"build_time"`
	Version   int       `json:"version"`
}

// faceIndex wraps an HNSW graph keyed by known-face ID.
type faceIndex struct {
	graph *hnsw.Graph[string]
	dim   int
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// buildIndex indexes every face whose descriptor has length dim.
func buildIndex(faces []database.KnownFace, dim int) *faceIndex {
	g := newGraph()
	nodes := make([]hnsw.Node[string], 0, len(faces))
	for _, f := range faces {
		if len(f.Descriptor) != dim {
			continue
		}
		nodes = append(nodes, hnsw.MakeNode(f.ID, f.Descriptor))
	}
	if len(nodes) > 0 {
		g.Add(nodes...)
	}
	return &faceIndex{graph: g, dim: dim}
}

func (ix *faceIndex) add(f database.KnownFace) {
	if len(f.Descriptor) != ix.dim {
		return
	}
	ix.graph.Add(hnsw.MakeNode(f.ID, f.Descriptor))
}

func (ix *faceIndex) len() int {
	return ix.graph.Len()
}

// search returns up to k face IDs close to query. Queries of the wrong
// length return nothing.
func (ix *faceIndex) search(query []float32, k int) []string {
	if len(query) != ix.dim || ix.graph.Len() == 0 {
		return nil
	}
	nodes := ix.graph.Search(query, k)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Key
	}
	return ids
}

// save writes the graph to path and its metadata to path.meta.
func (ix *faceIndex) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := ix.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close HNSW index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename HNSW index file: %w", err)
	}

	meta := IndexMetadata{
		FaceCount: ix.graph.Len(),
		Dim:       ix.dim,
		BuildTime: time.Now(),
		Version:   indexMetadataVersion,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", data, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadIndexMetadata reads the .meta file written next to a persisted graph.
func LoadIndexMetadata(path string) (IndexMetadata, error) {
	var meta IndexMetadata
	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return meta, nil
}

var errStaleIndex = errors.New("stale HNSW index")

// loadIndex loads a persisted graph if its metadata matches the expected
// face count and dimension.
func loadIndex(path string, wantCount, wantDim int) (*faceIndex, error) {
	meta, err := LoadIndexMetadata(path)
	if err != nil {
		return nil, err
	}
	if meta.Version != indexMetadataVersion || meta.FaceCount != wantCount || meta.Dim != wantDim {
		return nil, fmt.Errorf("%w: index has %d faces of dim %d, gallery has %d of dim %d",
			errStaleIndex, meta.FaceCount, meta.Dim, wantCount, wantDim)
	}

	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load HNSW index: %w", err)
	}
	g := saved.Graph
	if g.Len() != wantCount {
		return nil, fmt.Errorf("%w: graph has %d nodes", errStaleIndex, g.Len())
	}
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.EuclideanDistance
	return &faceIndex{graph: g, dim: wantDim}, nil
}

// removeIndexFiles deletes a persisted graph and its metadata (best effort).
func removeIndexFiles(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + ".meta")
}

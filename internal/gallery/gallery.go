// Package gallery holds the known faces in memory and matches descriptors
// against them, exactly for small galleries and through an HNSW index for
// large ones.
package gallery

import (
	"errors"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Options configures matching.
type Options struct {
	Tolerance    float64
	UnknownLabel string
	HNSWMinSize  int    // galleries at least this large are searched through HNSW; 0 disables the index
	Candidates   int    // HNSW neighbours re-ranked by exact distance
	IndexPath    string // optional file the HNSW graph is loaded from and saved to
}

// Person is a gallery entry grouped by name.
type Person struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// Gallery is safe for concurrent use.
type Gallery struct {
	opts Options

	mu          sync.RWMutex
	faces       []database.KnownFace
	descriptors [][]float32
	names       []string
	byID        map[string]int
	index       *faceIndex
}

// New creates an empty gallery.
func New(opts Options) *Gallery {
	if opts.Candidates <= 0 {
		opts.Candidates = 10
	}
	return &Gallery{opts: opts, byID: make(map[string]int)}
}

// Replace swaps the whole set of known faces.
func (g *Gallery) Replace(faces []database.KnownFace) {
	faces = append([]database.KnownFace(nil), faces...)
	descriptors, names, byID := columns(faces)
	index := g.prepareIndex(faces)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.faces = faces
	g.descriptors = descriptors
	g.names = names
	g.byID = byID
	g.index = index
}

// Add appends one face.
func (g *Gallery) Add(face database.KnownFace) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.byID[face.ID] = len(g.faces)
	g.faces = append(g.faces, face)
	g.descriptors = append(g.descriptors, face.Descriptor)
	g.names = append(g.names, face.Name)

	switch {
	case g.index != nil:
		g.index.add(face)
	case g.indexWanted(len(g.faces)):
		g.index = buildIndex(g.faces, dominantDim(g.faces))
	}
}

// RemovePerson drops every face of name (normalized comparison) and returns
// how many were removed.
func (g *Gallery) RemovePerson(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	kept := make([]database.KnownFace, 0, len(g.faces))
	for _, f := range g.faces {
		if !facematch.SameName(f.Name, name) {
			kept = append(kept, f)
		}
	}
	removed := len(g.faces) - len(kept)
	if removed == 0 {
		return 0
	}

	g.faces = kept
	g.descriptors, g.names, g.byID = columns(kept)
	g.index = nil
	if g.indexWanted(len(kept)) {
		g.index = buildIndex(kept, dominantDim(kept))
	}
	return removed
}

// Len returns the number of known faces.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.faces)
}

// Faces returns a copy of the known faces.
func (g *Gallery) Faces() []database.KnownFace {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]database.KnownFace(nil), g.faces...)
}

// People returns enrolled names with their sample counts, sorted by name.
func (g *Gallery) People() []Person {
	g.mu.RLock()
	counts := make(map[string]int)
	for _, name := range g.names {
		counts[name]++
	}
	g.mu.RUnlock()

	people := make([]Person, 0, len(counts))
	for name, n := range counts {
		people = append(people, Person{Name: name, Samples: n})
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people
}

// Indexed reports whether matching currently goes through the HNSW index.
func (g *Gallery) Indexed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index != nil
}

// Match finds the closest known face to descriptor.
func (g *Gallery) Match(descriptor []float32) facematch.Match {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index != nil {
		if m, ok := g.matchIndexed(descriptor); ok {
			return m
		}
	}
	return facematch.BestMatch(g.descriptors, g.names, descriptor, g.opts.Tolerance, g.opts.UnknownLabel)
}

// matchIndexed re-ranks HNSW candidates by exact distance.
func (g *Gallery) matchIndexed(descriptor []float32) (facematch.Match, bool) {
	ids := g.index.search(descriptor, g.opts.Candidates)
	best := facematch.Match{Index: -1, Distance: math.Inf(1)}
	for _, id := range ids {
		pos, ok := g.byID[id]
		if !ok {
			continue
		}
		d := facematch.Distance(g.descriptors[pos], descriptor)
		if d < best.Distance || (d == best.Distance && pos < best.Index) {
			best.Index = pos
			best.Distance = d
		}
	}
	if best.Index < 0 {
		return best, false
	}
	return facematch.Resolve(best, g.names, g.opts.Tolerance, g.opts.UnknownLabel), true
}

// SaveIndex persists the HNSW graph to IndexPath. Without an index the
// files are removed so a later start does not load a stale graph.
func (g *Gallery) SaveIndex() error {
	if g.opts.IndexPath == "" {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index == nil {
		removeIndexFiles(g.opts.IndexPath)
		return nil
	}
	return g.index.save(g.opts.IndexPath)
}

func (g *Gallery) indexWanted(n int) bool {
	return g.opts.HNSWMinSize > 0 && n >= g.opts.HNSWMinSize
}

// prepareIndex loads a persisted index when it matches faces, else builds one.
func (g *Gallery) prepareIndex(faces []database.KnownFace) *faceIndex {
	if !g.indexWanted(len(faces)) {
		return nil
	}
	dim := dominantDim(faces)
	indexable := 0
	for _, f := range faces {
		if len(f.Descriptor) == dim {
			indexable++
		}
	}

	if g.opts.IndexPath != "" {
		ix, err := loadIndex(g.opts.IndexPath, indexable, dim)
		if err == nil && containsAll(ix, faces) {
			log.Printf("Loaded HNSW index with %d faces from %s", ix.len(), g.opts.IndexPath)
			return ix
		}
		if err != nil && !errors.Is(err, errStaleIndex) {
			log.Printf("HNSW index not loaded: %v", err)
		}
	}

	ix := buildIndex(faces, dim)
	log.Printf("Built HNSW index with %d faces", ix.len())
	return ix
}

func containsAll(ix *faceIndex, faces []database.KnownFace) bool {
	for _, f := range faces {
		if len(f.Descriptor) != ix.dim {
			continue
		}
		if _, ok := ix.graph.Lookup(f.ID); !ok {
			return false
		}
	}
	return true
}

func columns(faces []database.KnownFace) ([][]float32, []string, map[string]int) {
	descriptors := make([][]float32, len(faces))
	names := make([]string, len(faces))
	byID := make(map[string]int, len(faces))
	for i, f := range faces {
		descriptors[i] = f.Descriptor
		names[i] = f.Name
		byID[f.ID] = i
	}
	return descriptors, names, byID
}

// dominantDim returns the most common descriptor length.
func dominantDim(faces []database.KnownFace) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, f := range faces {
		n := len(f.Descriptor)
		if n == 0 {
			continue
		}
		counts[n]++
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}
	return best
}

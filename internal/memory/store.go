// Package memory is the semantic memory: (goal, plan) pairs embedded
// at store time and retrieved by cosine similarity to seed the planner
// prompt with prior successes.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// Embedder is the slice of the inference client the store depends on.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// Entry is one remembered interaction.
type Entry struct {
	Goal   string     `json:"goal"`
	Plan   types.Plan `json:"plan"`
	Vector []float64  `json:"vector"`
}

// Store keeps every entry in memory and mirrors the whole set to a
// single JSON file: load-all on startup, rewrite-all on add. A corrupt
// file yields an empty store.
type Store struct {
	mu        sync.Mutex
	path      string
	model     string
	threshold float64
	embedder  Embedder
	entries   []Entry
	log       *logrus.Logger
}

// NewStore loads the persisted entries from path. A missing file is an
// empty store; so is an unreadable one.
func NewStore(path, model string, threshold float64, embedder Embedder, log *logrus.Logger) *Store {
	s := &Store{
		path:      path,
		model:     model,
		threshold: threshold,
		embedder:  embedder,
		log:       log,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithField("component", "memory").Warnf("failed to read %s: %v", s.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.log.WithField("component", "memory").Warnf("corrupt memory file %s, starting empty: %v", s.path, err)
		s.entries = nil
	}
}

// Add embeds goal and persists the new entry. Entries whose embedding
// comes back empty are silently dropped; only the file rewrite can
// fail.
func (s *Store) Add(ctx context.Context, goal string, plan types.Plan) error {
	vector, err := s.embedder.Embed(ctx, s.model, goal)
	if err != nil {
		s.log.WithField("component", "memory").Debugf("embedding unavailable, dropping entry: %v", err)
		return nil
	}
	if len(vector) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{Goal: goal, Plan: plan, Vector: vector})
	return s.save()
}

// save rewrites the whole file; the caller holds the lock.
func (s *Store) save() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entries: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	return nil
}

// Retrieve returns up to topK stored entries ranked by cosine
// similarity to goal, keeping only those above the threshold.
func (s *Store) Retrieve(ctx context.Context, goal string, topK int) ([]Entry, error) {
	query, err := s.embedder.Embed(ctx, s.model, goal)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(query) == 0 || len(s.entries) == 0 {
		return nil, nil
	}

	type scored struct {
		score float64
		entry Entry
	}
	scores := make([]scored, 0, len(s.entries))
	for _, entry := range s.entries {
		scores = append(scores, scored{score: cosine(query, entry.Vector), entry: entry})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	var out []Entry
	for _, sc := range scores[:topK] {
		if sc.score > s.threshold {
			out = append(out, sc.entry)
		}
	}
	return out, nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Package mockollama serves canned model responses over the Ollama
// HTTP wire format. Fixture files are keyed by model name, so a
// development run or an end-to-end test can script an entire
// plan/verify conversation without a real model host.
package mockollama

import (
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const embeddingDim = 64

// Server replays fixture responses in order, per model.
type Server struct {
	fixtures map[string][]string
	log      *logrus.Logger

	mu    sync.Mutex
	calls map[string]int
}

// New loads fixtures from dir and builds a server around them.
func New(fixtureDir string, log *logrus.Logger) (*Server, error) {
	fixtures, err := loadFixtures(fixtureDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	return &Server{
		fixtures: fixtures,
		log:      log,
		calls:    make(map[string]int),
	}, nil
}

// Router builds the gin handler tree for the Ollama API surface.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/generate", s.handleGenerate)
	r.POST("/api/embeddings", s.handleEmbeddings)
	r.GET("/api/tags", s.handleTags)
	r.GET("/stats", s.handleStats)

	return r
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Format string   `json:"format,omitempty"`
	Stream bool     `json:"stream"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, ok := s.next(req.Model)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model '%s' not found", req.Model)})
		return
	}

	s.log.WithFields(logrus.Fields{
		"model":  req.Model,
		"images": len(req.Images),
	}).Debug("serving generate fixture")

	c.JSON(http.StatusOK, gin.H{
		"model":    req.Model,
		"response": content,
		"done":     true,
	})
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func (s *Server) handleEmbeddings(c *gin.Context) {
	var req embeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"embedding": embedText(req.Prompt),
	})
}

func (s *Server) handleTags(c *gin.Context) {
	names := make([]string, 0, len(s.fixtures))
	for name := range s.fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]gin.H, 0, len(names))
	for _, name := range names {
		models = append(models, gin.H{"name": name})
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (s *Server) handleStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	byModel := gin.H{}
	for model, n := range s.calls {
		total += n
		byModel[model] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"total_calls":    total,
		"calls_by_model": byModel,
	})
}

// next returns the fixture for the model's current call and advances
// its counter. Once the sequence is exhausted the last fixture repeats.
func (s *Server) next(model string) (string, bool) {
	seq, ok := s.fixtures[model]
	if !ok || len(seq) == 0 {
		return "", false
	}

	s.mu.Lock()
	idx := s.calls[model]
	s.calls[model]++
	s.mu.Unlock()

	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	return seq[idx], true
}

// embedText builds a deterministic bag-of-words vector so that equal
// texts embed identically and retrieval stays stable across runs.
func embedText(text string) []float64 {
	vec := make([]float64, embeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

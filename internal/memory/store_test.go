package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivay00001/RemotePilot/pkg/logger"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// stubEmbedder returns a fixed vector per text so similarity is fully
// controlled by the test.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func TestStore_AddAndRetrieve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	emb := &stubEmbedder{vectors: map[string][]float64{
		"open the browser":  {1, 0, 0},
		"open a web page":   {0.9, 0.1, 0},
		"delete everything": {0, 0, 1},
	}}

	store := NewStore(path, "embed-model", 0.7, emb, logger.CreateTestLogger())

	plan := types.Plan{types.BrowseStep{URL: "https://example.com"}}
	require.NoError(t, store.Add(context.Background(), "open the browser", plan))
	require.NoError(t, store.Add(context.Background(), "delete everything", types.Plan{types.CommandStep{Value: "true"}}))
	assert.Equal(t, 2, store.Len())

	got, err := store.Retrieve(context.Background(), "open a web page", 2)
	require.NoError(t, err)
	require.Len(t, got, 1, "only the similar goal clears the threshold")
	assert.Equal(t, "open the browser", got[0].Goal)
	assert.Equal(t, plan, got[0].Plan)
}

func TestStore_RetrieveTopKBeforeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	emb := &stubEmbedder{vectors: map[string][]float64{
		"a": {1, 0},
		"b": {0.95, 0.05},
		"c": {0.9, 0.1},
	}}

	store := NewStore(path, "embed-model", 0.7, emb, logger.CreateTestLogger())
	for _, goal := range []string{"a", "b", "c"} {
		require.NoError(t, store.Add(context.Background(), goal, types.Plan{}))
	}

	// All three clear the threshold; the slice still caps at topK.
	got, err := store.Retrieve(context.Background(), "a", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Goal)
}

func TestStore_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	emb := &stubEmbedder{vectors: map[string][]float64{"g": {1, 0}}}

	store := NewStore(path, "embed-model", 0.5, emb, logger.CreateTestLogger())
	require.NoError(t, store.Add(context.Background(), "g", types.Plan{types.WaitStep{Seconds: 1}}))

	reopened := NewStore(path, "embed-model", 0.5, emb, logger.CreateTestLogger())
	assert.Equal(t, 1, reopened.Len())

	got, err := reopened.Retrieve(context.Background(), "g", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.Plan{types.WaitStep{Seconds: 1}}, got[0].Plan)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0644))

	store := NewStore(path, "embed-model", 0.5, &stubEmbedder{}, logger.CreateTestLogger())
	assert.Equal(t, 0, store.Len())
}

func TestStore_AddEmbedFailureIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store := NewStore(path, "embed-model", 0.5, &stubEmbedder{err: errors.New("host down")}, logger.CreateTestLogger())

	require.NoError(t, store.Add(context.Background(), "g", types.Plan{}))
	assert.Equal(t, 0, store.Len())
}

func TestStore_RetrieveEmbedFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store := NewStore(path, "embed-model", 0.5, &stubEmbedder{err: errors.New("host down")}, logger.CreateTestLogger())

	_, err := store.Retrieve(context.Background(), "g", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float64{1, 0}, []float64{1}), "mismatched dimensions score zero")
	assert.Equal(t, 0.0, cosine(nil, nil))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CATPREP_DATABASE_URL", "postgres://localhost/catprep")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 200, cfg.ChunkMaxWords)
	assert.Equal(t, 20, cfg.ChunkOverlapWords)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.Equal(t, 0.6, cfg.SelectorPolicyWeight)
	assert.Equal(t, 10, cfg.MockTestSize)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.False(t, cfg.HasOpenAI())
	assert.False(t, cfg.HasS3())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("CATPREP_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_OverlapMustBeSmallerThanChunk(t *testing.T) {
	t.Setenv("CATPREP_DATABASE_URL", "postgres://localhost/catprep")
	t.Setenv("CATPREP_CHUNK_MAX_WORDS", "50")
	t.Setenv("CATPREP_CHUNK_OVERLAP_WORDS", "50")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EmbeddingDimensionsMustMatchSchema(t *testing.T) {
	t.Setenv("CATPREP_DATABASE_URL", "postgres://localhost/catprep")
	t.Setenv("CATPREP_EMBEDDING_DIMENSIONS", "768")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema migration")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATPREP_DATABASE_URL", "postgres://localhost/catprep")
	t.Setenv("CATPREP_OPENAI_API_KEY", "sk-test")
	t.Setenv("CATPREP_RETRIEVAL_TOP_K", "3")
	t.Setenv("CATPREP_SELECTOR_POLICY_WEIGHT", "0.8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.HasOpenAI())
	assert.Equal(t, 3, cfg.RetrievalTopK)
	assert.Equal(t, 0.8, cfg.SelectorPolicyWeight)
}

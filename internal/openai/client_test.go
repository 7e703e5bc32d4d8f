package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAPI struct {
	embedding  []float32
	embedErr   error
	completion string
	complErr   error

	lastSystem   string
	lastUser     string
	lastJSONMode bool
}

func (f *fakeAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	return f.embedding, f.embedErr
}

func (f *fakeAPI) CreateCompletion(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	f.lastJSONMode = jsonMode
	return f.completion, f.complErr
}

func TestGenerateEmbedding_Success(t *testing.T) {
	embedding := make([]float32, 8)
	client := &Client{api: &fakeAPI{embedding: embedding}, dimensions: 8}

	got, err := client.GenerateEmbedding(context.Background(), "permutations")
	assert.NoError(t, err)
	assert.Equal(t, embedding, got)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := &Client{api: &fakeAPI{}, dimensions: 8}

	_, err := client.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	client := &Client{api: &fakeAPI{embedding: make([]float32, 4)}, dimensions: 8}

	_, err := client.GenerateEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbedding_APIError(t *testing.T) {
	client := &Client{api: &fakeAPI{embedErr: errors.New("rate limited")}, dimensions: 8}

	_, err := client.GenerateEmbedding(context.Background(), "text")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}

func TestComplete_PassesPrompts(t *testing.T) {
	api := &fakeAPI{completion: "the answer"}
	client := &Client{api: api, dimensions: 8}

	got, err := client.Complete(context.Background(), "you are a tutor", "what is 2+2?")
	assert.NoError(t, err)
	assert.Equal(t, "the answer", got)
	assert.Equal(t, "you are a tutor", api.lastSystem)
	assert.False(t, api.lastJSONMode)
}

func TestCompleteJSON_SetsJSONMode(t *testing.T) {
	api := &fakeAPI{completion: `{"questions":[]}`}
	client := &Client{api: api, dimensions: 8}

	got, err := client.CompleteJSON(context.Background(), "extract", "text")
	assert.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, got)
	assert.True(t, api.lastJSONMode)
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

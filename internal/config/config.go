package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SchemaEmbeddingDim is the width of the chunks.embedding vector column.
// Changing the embedding dimension requires a schema migration; keep this
// constant in step with the migrations.
const SchemaEmbeddingDim = 1536

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	// EmbeddingDimensions must equal SchemaEmbeddingDim; the env override
	// exists for deployments that also migrate the chunks table.
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	// Chunking: word counts, shared overlap between consecutive chunks.
	ChunkMaxWords     int `envconfig:"CHUNK_MAX_WORDS" default:"200"`
	ChunkOverlapWords int `envconfig:"CHUNK_OVERLAP_WORDS" default:"20"`

	// Retrieval
	RetrievalTopK int           `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	CallTimeout   time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`

	// Extraction windows are larger than retrieval chunks so whole questions
	// fit inside one LLM call.
	ExtractionWindowWords  int `envconfig:"EXTRACTION_WINDOW_WORDS" default:"600"`
	ExtractionOverlapWords int `envconfig:"EXTRACTION_OVERLAP_WORDS" default:"80"`

	// Adaptive selection and mock tests
	SelectorPolicyWeight float64 `envconfig:"SELECTOR_POLICY_WEIGHT" default:"0.6"`
	MockTestSize         int     `envconfig:"MOCK_TEST_SIZE" default:"10"`

	// Difficulty scorer weights; tunable policy, not a fixed contract.
	DifficultyLengthWeight float64 `envconfig:"DIFFICULTY_LENGTH_WEIGHT" default:"0.25"`
	DifficultyOptionWeight float64 `envconfig:"DIFFICULTY_OPTION_WEIGHT" default:"0.15"`
	DifficultyTopicWeight  float64 `envconfig:"DIFFICULTY_TOPIC_WEIGHT" default:"0.25"`
	DifficultySignalWeight float64 `envconfig:"DIFFICULTY_SIGNAL_WEIGHT" default:"0.35"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"catprep-material"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CATPREP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkOverlapWords >= cfg.ChunkMaxWords {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", cfg.ChunkOverlapWords, cfg.ChunkMaxWords)
	}

	// Fail at startup rather than on the first chunk insert: the vector
	// column width is fixed by the schema.
	if cfg.EmbeddingDimensions != SchemaEmbeddingDim {
		return nil, fmt.Errorf("embedding dimensions (%d) do not match the chunks.embedding column width (%d); changing the dimension requires a schema migration", cfg.EmbeddingDimensions, SchemaEmbeddingDim)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/api/handlers"
	"github.com/preplab/catprep/internal/jobs"
	"github.com/preplab/catprep/internal/repository"
	"github.com/preplab/catprep/internal/server"
	"github.com/preplab/catprep/internal/service"
	"github.com/preplab/catprep/internal/testutil"
)

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Worker     *jobs.PipelineWorker
	LLM        *scriptedLLM
	HTTPClient *http.Client
}

// scriptedLLM is a deterministic stand-in for the OpenAI client. Embeddings
// are bag-of-words vectors so text sharing vocabulary scores high on cosine
// similarity; completions are scripted per test.
type scriptedLLM struct {
	ExtractionJSON string
	AnswerText     string
}

func (s *scriptedLLM) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims] += 1
	}
	// Normalize so cosine distance is well behaved.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (s *scriptedLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return s.AnswerText, nil
}

func (s *scriptedLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return s.ExtractionJSON, nil
}

// SetupE2EEnv creates a full environment: a pgvector container, the real
// service stack over it, and an HTTP server running the production router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	llm := &scriptedLLM{}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	skillRepo := repository.NewSkillStateRepository(pool)
	mockTestRepo := repository.NewMockTestRepository(pool)
	jobRepo := repository.NewPipelineJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	ingestSvc := service.NewIngestServiceWithTx(documentRepo, jobRepo, txRunner)
	tracker := service.NewTracker(attemptRepo, skillRepo)
	selector := service.NewAdaptiveSelector(service.DefaultSelectorConfig(), rand.New(rand.NewSource(11)))
	practiceSvc := service.NewPracticeService(questionRepo, skillRepo, tracker, selector)
	mockTestSvc := service.NewMockTestService(questionRepo, mockTestRepo, tracker)
	statsSvc := service.NewStatsService(skillRepo, attemptRepo, 3)

	retriever := service.NewRetriever(llm, chunkRepo, service.DefaultRetrieverConfig())
	answerSvc := service.NewAnswerService(llm, 10*time.Second)

	scorer := service.NewDifficultyScorer(service.DefaultDifficultyWeights())
	extractor := service.NewExtractor(llm, scorer, service.DefaultExtractorConfig())
	pipelineSvc := service.NewPipelineService(
		documentRepo,
		chunkRepo,
		questionRepo,
		llm,
		extractor,
		service.ChunkConfig{MaxWords: 40, OverlapWords: 5},
		10*time.Second,
	)
	worker := jobs.NewPipelineWorker(jobRepo, pipelineSvc, documentRepo, time.Second)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		AskHandler:      handlers.NewAskHandler(retriever, answerSvc),
		PracticeHandler: handlers.NewPracticeHandler(practiceSvc),
		MockTestHandler: handlers.NewMockTestHandler(mockTestSvc, 5),
		StatsHandler:    handlers.NewStatsHandler(statsSvc),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		Worker:     worker,
		LLM:        llm,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// ProcessPendingJobs drives the pipeline worker through one poll cycle.
func (e *E2ETestEnv) ProcessPendingJobs() {
	if err := e.Worker.ProcessPending(e.Ctx); err != nil {
		e.T.Fatalf("pipeline run failed: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (int, *APIResponse) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (int, *APIResponse) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (int, *APIResponse) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response body: %v", err)
	}

	var parsed APIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.T.Fatalf("failed to parse response %s: %v", raw, err)
	}
	return resp.StatusCode, &parsed
}

// DecodeData unmarshals the data payload into out.
func (e *E2ETestEnv) DecodeData(resp *APIResponse, out interface{}) {
	if err := json.Unmarshal(resp.Data, out); err != nil {
		e.T.Fatalf("failed to decode data payload: %v", err)
	}
}

// extractionFixture builds a scripted extraction response with n questions
// spread over the given topics.
func extractionFixture(n int, topics []string) string {
	questions := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		questions[i] = map[string]interface{}{
			"topic":         topics[i%len(topics)],
			"text":          fmt.Sprintf("What is the value of expression number %d?", i+1),
			"options":       []string{"10", "20", "30", "40"},
			"correct_index": i % 4,
			"explanation":   "Apply the standard formula.",
			"raw_signal":    float64(1 + i%5),
		}
	}
	payload, _ := json.Marshal(map[string]interface{}{"questions": questions})
	return string(payload)
}

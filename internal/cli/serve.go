package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaisdk "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/preplab/catprep/internal/api/handlers"
	"github.com/preplab/catprep/internal/config"
	"github.com/preplab/catprep/internal/database"
	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/jobs"
	"github.com/preplab/catprep/internal/openai"
	"github.com/preplab/catprep/internal/repository"
	"github.com/preplab/catprep/internal/server"
	"github.com/preplab/catprep/internal/service"
	"github.com/preplab/catprep/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the catprep API server and the document pipeline worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	skillRepo := repository.NewSkillStateRepository(pool)
	mockTestRepo := repository.NewMockTestRepository(pool)
	jobRepo := repository.NewPipelineJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var llm *openai.Client
	if cfg.OpenAIAPIKey != "" {
		llm = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openaisdk.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.ChatModel,
		})
	}

	ingestSvc := service.NewIngestServiceWithTx(documentRepo, jobRepo, txRunner)
	tracker := service.NewTracker(attemptRepo, skillRepo)
	selector := service.NewAdaptiveSelector(service.SelectorConfig{
		PolicyWeight: cfg.SelectorPolicyWeight,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))
	practiceSvc := service.NewPracticeService(questionRepo, skillRepo, tracker, selector)
	mockTestSvc := service.NewMockTestService(questionRepo, mockTestRepo, tracker)
	statsSvc := service.NewStatsService(skillRepo, attemptRepo, 3)

	var embedder service.EmbeddingClient
	var completer service.CompletionClient
	var jsonCompleter service.JSONCompletionClient
	if llm != nil {
		embedder = llm
		completer = llm
		jsonCompleter = llm
	} else {
		log.Println("OPENAI_API_KEY not set: ask and pipeline endpoints will report unavailable")
		unavailable := &unavailableLLM{}
		embedder = unavailable
		completer = unavailable
		jsonCompleter = unavailable
	}

	retriever := service.NewRetriever(embedder, chunkRepo, service.RetrieverConfig{
		TopK:        cfg.RetrievalTopK,
		CallTimeout: cfg.CallTimeout,
	})
	answerSvc := service.NewAnswerService(completer, cfg.CallTimeout)

	scorer := service.NewDifficultyScorer(service.DifficultyWeights{
		Length: cfg.DifficultyLengthWeight,
		Option: cfg.DifficultyOptionWeight,
		Topic:  cfg.DifficultyTopicWeight,
		Signal: cfg.DifficultySignalWeight,
	})
	extractor := service.NewExtractor(jsonCompleter, scorer, service.ExtractorConfig{
		WindowWords:  cfg.ExtractionWindowWords,
		OverlapWords: cfg.ExtractionOverlapWords,
		CallTimeout:  cfg.CallTimeout,
	})
	pipelineSvc := service.NewPipelineService(
		documentRepo,
		chunkRepo,
		questionRepo,
		embedder,
		extractor,
		service.ChunkConfig{MaxWords: cfg.ChunkMaxWords, OverlapWords: cfg.ChunkOverlapWords},
		cfg.CallTimeout,
	)

	var pipelineWorker *jobs.PipelineWorker
	if llm != nil {
		pipelineWorker = jobs.NewPipelineWorker(jobRepo, pipelineSvc, documentRepo, cfg.WorkerPollInterval)
		go pipelineWorker.Run(ctx)
	}

	routerCfg := server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		AskHandler:      handlers.NewAskHandler(retriever, answerSvc),
		PracticeHandler: handlers.NewPracticeHandler(practiceSvc),
		MockTestHandler: handlers.NewMockTestHandler(mockTestSvc, cfg.MockTestSize),
		StatsHandler:    handlers.NewStatsHandler(statsSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if pipelineWorker != nil {
		pipelineWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// unavailableLLM stands in when no OpenAI key is configured. Every call
// fails with a service error so the affected endpoints degrade cleanly.
type unavailableLLM struct{}

func (u *unavailableLLM) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingService
}

func (u *unavailableLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return "", domain.ErrAnswerService
}

func (u *unavailableLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return "", domain.ErrExtractionService
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

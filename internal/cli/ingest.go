package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/preplab/catprep/internal/config"
	"github.com/preplab/catprep/internal/database"
	"github.com/preplab/catprep/internal/pdftext"
	"github.com/preplab/catprep/internal/repository"
	"github.com/preplab/catprep/internal/service"
	"github.com/preplab/catprep/internal/storage"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Ingest a study material PDF",
		Long:  "Extract text from a PDF, register the document, and queue it for chunking and question extraction",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().Bool("no-archive", false, "Skip archiving the original PDF to object storage")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := pdftext.Extract(content)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	log.Printf("extracted %d pages from %s", result.PageCount, path)

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewPipelineJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	ingestSvc := service.NewIngestServiceWithTx(documentRepo, jobRepo, txRunner)

	document, err := ingestSvc.Ingest(ctx, service.IngestInput{
		Filename:  filepath.Base(path),
		Text:      result.Text,
		PageCount: result.PageCount,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if !noArchive && cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		key := storage.MaterialKey(document.ID)
		if err := s3Client.Upload(ctx, key, "application/pdf", content); err != nil {
			return fmt.Errorf("failed to archive original PDF: %w", err)
		}
		log.Printf("archived original to s3://%s/%s", cfg.S3Bucket, key)
	}

	fmt.Printf("document %s queued for processing (%d pages)\n", document.ID, document.PageCount)
	return nil
}

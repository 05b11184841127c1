// Package cli implements ragctl, which runs the ingestion and screening
// services in-process.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"applicant-rag/internal/app"
	"applicant-rag/internal/bootstrap"
	"applicant-rag/internal/config"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/logger"
)

type ingestionService interface {
	VectorizeFiles(ctx context.Context, inputs []app.VectorizeInput) ([]app.IngestResult, error)
	DeleteFileVectors(ctx context.Context, in app.DeleteInput) error
}

type assistService interface {
	Request(ctx context.Context, collection string, p domain.Prompt) (*domain.QandA, error)
}

type screeningService interface {
	Summarize(ctx context.Context, in app.SummarizeInput) (*app.Screening, error)
	ImportQuestionnaire(ctx context.Context, attorneyID, applicantID string, prompts []domain.Prompt) error
}

type evidenceService interface {
	Generate(ctx context.Context, attorneyID, applicantID string) (*app.EvidenceLetter, error)
	GenerateFrom(ctx context.Context, screening *app.Screening) (*app.EvidenceLetter, error)
}

// Services are built on first use unless already set.
var (
	ingestion ingestionService
	assist    assistService
	screening screeningService
	evidence  evidenceService

	application *bootstrap.App
)

var (
	configPath  string
	attorneyID  string
	applicantID string
	standalone  bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Vectorize applicant documents and answer screening questions",
	Long: `ragctl indexes an applicant's documents into their collection and answers
questions from them with the configured LLM provider.

With --standalone the vector store is kept in memory and no MySQL, Redis or
RabbitMQ connection is made; documents must then be ingested with --ingest in
the same invocation.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardownServices()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	flags.StringVar(&attorneyID, "attorney", "", "attorney id")
	flags.StringVar(&applicantID, "applicant", "", "applicant id")
	flags.BoolVar(&standalone, "standalone", false, "use an in-memory vector store without external services")
	flags.BoolVar(&jsonOutput, "json", false, "output results as JSON")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	if ingestion != nil && assist != nil && screening != nil && evidence != nil {
		return nil
	}
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "configs/config.toml"
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	cfg.RabbitMQ.Enabled = false
	if standalone {
		cfg.VectorStore.Backend = "memory"
		cfg.MySQL.Enabled = false
		cfg.Redis.Enabled = false
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), config.LogConfig{Level: cfg.Log.Level, Format: "console"}, cfg.App)
	a, err := bootstrap.New(cmd.Context(), cfg, log, bootstrap.WithoutWorker())
	if err != nil {
		return err
	}
	application = a
	ingestion, assist, screening, evidence = a.Ingestion, a.Assist, a.Screening, a.Evidence
	return nil
}

func teardownServices() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	ingestion, assist, screening, evidence = nil, nil, nil, nil
	return err
}

func requireOwner() error {
	if attorneyID == "" || applicantID == "" {
		return errors.New("--attorney and --applicant are required")
	}
	return domain.ValidateOwnerIDs(attorneyID, applicantID)
}

func collection() string {
	return domain.CollectionName(attorneyID, applicantID)
}

func parseTag(s string) (domain.Tag, error) {
	if s == "" {
		return domain.TagUnspecified, fmt.Errorf("--tag is required (%v)", domain.Tags())
	}
	return domain.ParseTag(s)
}

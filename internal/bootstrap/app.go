package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/app"
	"applicant-rag/internal/budget"
	"applicant-rag/internal/cache"
	"applicant-rag/internal/chunker"
	"applicant-rag/internal/config"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/expander"
	"applicant-rag/internal/indexer"
	"applicant-rag/internal/loader"
	"applicant-rag/internal/metrics"
	mysqlClient "applicant-rag/internal/platform/mysql"
	rabbitmqClient "applicant-rag/internal/platform/rabbitmq"
	redisClient "applicant-rag/internal/platform/redis"
	"applicant-rag/internal/repository"
	"applicant-rag/internal/retriever"
	"applicant-rag/internal/throttle"
	"applicant-rag/internal/tokenizer"
	"applicant-rag/internal/vectorstore"
	"applicant-rag/internal/worker"
)

type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Metrics

	// Gate is shared by every provider call in the process.
	Gate      *throttle.Gate
	Tokenizer *tokenizer.Tokenizer
	Provider  *ai.GatedClient
	Store     vectorstore.Store

	MySQL     *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.JobPublisher
	Worker    *worker.VectorizeWorker

	Ingestion *app.IngestionService
	Assist    *app.AssistService
	Screening *app.ScreeningService
	Evidence  *app.EvidenceService

	StartedAt time.Time
}

type options struct {
	startWorker bool
	provider    ai.Provider
}

type Option func(*options)

// WithoutWorker skips consuming the vectorize queue. The publisher is
// still available.
func WithoutWorker() Option {
	return func(o *options) { o.startWorker = false }
}

// WithProvider replaces the configured LLM and embedding provider.
func WithProvider(p ai.Provider) Option {
	return func(o *options) { o.provider = p }
}

// New builds every component from cfg. Failures are *domain.InitError
// naming the component; resources opened before the failure are closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	o := options{startWorker: true}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: log, Metrics: metrics.New(), StartedAt: time.Now()}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	var err error
	a.Tokenizer, err = tokenizer.New(cfg.RAG.TokenizerModel)
	if err != nil {
		return nil, domain.NewInitError(domain.ComponentTokenizer, err)
	}

	if cfg.Throttle.LockTimeout <= 0 || cfg.Throttle.Interval < 0 {
		return nil, domain.NewInitError(domain.ComponentRateLimiter,
			fmt.Errorf("invalid throttle interval %s or lock timeout %s", cfg.Throttle.Interval, cfg.Throttle.LockTimeout))
	}
	a.Gate = throttle.New(
		throttle.WithInterval(cfg.Throttle.Interval),
		throttle.WithLockTimeout(cfg.Throttle.LockTimeout),
		throttle.WithHoldLimit(cfg.LLM.Timeout),
		throttle.WithMetrics(a.Metrics),
	)

	provider := o.provider
	if provider == nil {
		provider, err = newProvider(cfg.LLM)
		if err != nil {
			return nil, domain.NewInitError(domain.ComponentLLM, err)
		}
	}
	a.Provider = ai.NewGatedClient(provider, a.Gate,
		ai.WithMaxAttempts(cfg.LLM.MaxAttempts),
		ai.WithGatedMetrics(a.Metrics),
		ai.WithLogger(log.With().Str("component", "provider").Logger()),
	)

	store, err := newStore(ctx, cfg.VectorStore)
	if err != nil {
		return nil, domain.NewInitError(domain.ComponentVectorStore, err)
	}
	a.Store = store

	var (
		files          app.FileRecorder
		screenings     app.ScreeningStore
		questionnaires app.QuestionnaireStore
		letters        app.EvidenceStore
	)
	if cfg.MySQL.Enabled {
		a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, domain.NewInitError(domain.ComponentMetadataStore, err)
		}
		if err = mysqlClient.Migrate(ctx, a.MySQL); err != nil {
			return nil, domain.NewInitError(domain.ComponentMetadataStore, err)
		}
		files = repository.NewVectorizedFileRepository(a.MySQL)
		screenings = repository.NewScreeningRepository(a.MySQL)
		questionnaires = repository.NewQuestionnaireRepository(a.MySQL)
		letters = repository.NewEvidenceRepository(a.MySQL)
	}

	var locker indexer.Locker = indexer.NewKeyedMutex()
	expanderOpts := []expander.Option{expander.WithLogger(log.With().Str("component", "expander").Logger())}
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, domain.NewInitError(domain.ComponentCache, err)
		}
		locker = cache.NewCollectionLock(a.Redis, cfg.Redis.LockTTL, log.With().Str("component", "collection_lock").Logger())
		expanderOpts = append(expanderOpts, expander.WithCache(cache.NewExpansionCache(a.Redis, cfg.Redis.ExpansionTTL)))
	}

	dedupe, err := retriever.ParseDedupe(cfg.RAG.Dedupe)
	if err != nil {
		return nil, fmt.Errorf("invalid rag config: %w", err)
	}

	splitter := chunker.New(a.Tokenizer,
		chunker.WithChunkSize(cfg.RAG.ChunkSize),
		chunker.WithOverlap(cfg.RAG.ChunkOverlap),
		chunker.WithMinTokens(cfg.RAG.MinTokens),
	)
	ix := indexer.New(a.Provider, a.Store,
		indexer.WithLocker(locker),
		indexer.WithConcurrency(cfg.RAG.IndexConcurrency),
		indexer.WithMetrics(a.Metrics),
		indexer.WithLogger(log.With().Str("component", "indexer").Logger()),
	)
	ret := retriever.New(a.Provider, a.Store,
		retriever.WithDedupe(dedupe),
		retriever.WithMetrics(a.Metrics),
		retriever.WithLogger(log.With().Str("component", "retriever").Logger()),
	)

	a.Ingestion = app.NewIngestionService(loader.NewRegistry(), splitter, ix, a.Store, files, a.Metrics,
		log.With().Str("component", "ingestion").Logger())
	a.Assist = app.NewAssistService(
		expander.New(a.Provider, expanderOpts...),
		ret,
		budget.New(a.Tokenizer, cfg.RAG.MaxContextTokens),
		a.Provider,
		cfg.RAG.RetrievalLimit,
		log.With().Str("component", "assist").Logger(),
	)
	a.Screening = app.NewScreeningService(a.Assist, screenings, questionnaires, cfg.RAG.ScreeningConcurrency,
		log.With().Str("component", "screening").Logger())
	a.Evidence = app.NewEvidenceService(a.Screening, a.Provider, letters,
		log.With().Str("component", "evidence").Logger())

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, domain.NewInitError(domain.ComponentQueue, err)
		}
		a.Publisher = rabbitmqClient.NewJobPublisher(a.MQConn, cfg.RabbitMQ.VectorizeQueue)
		if o.startWorker {
			a.Worker = worker.NewVectorizeWorker(a.MQConn, a.Ingestion, cfg.RabbitMQ.VectorizeQueue, cfg.RabbitMQ.Prefetch, log)
			if err = a.Worker.Start(ctx); err != nil {
				return nil, domain.NewInitError(domain.ComponentQueue, fmt.Errorf("start vectorize worker failed: %w", err))
			}
		}
	}

	log.Info().
		Str("llm", cfg.LLM.Provider).
		Str("vector_store", cfg.VectorStore.Backend).
		Bool("mysql", a.MySQL != nil).
		Bool("redis", a.Redis != nil).
		Bool("rabbitmq", a.MQConn != nil).
		Msg("application initialized")
	ready = true
	return a, nil
}

func newProvider(cfg config.LLMConfig) (ai.Provider, error) {
	switch cfg.Provider {
	case "ollama":
		c, err := ai.NewOllamaClient(ai.OllamaConfig{
			Host:           cfg.OllamaHost,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai", "":
		c, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			Timeout:        cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
}

func newStore(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return vectorstore.NewMemory(), nil
	case "pgvector":
		pg, err := vectorstore.NewPGVector(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "qdrant", "":
		q, err := vectorstore.NewQdrant(vectorstore.QdrantConfig{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantTLS,
		})
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := q.Ping(pingCtx); err != nil {
			_ = q.Close()
			return nil, err
		}
		return q, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Checks returns a reachability check per configured dependency.
func (a *App) Checks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if p, ok := a.Store.(pinger); ok {
		checks["vector_store"] = p.Ping
	}
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := a.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			errs = append(errs, err)
		}
	}
	switch s := a.Store.(type) {
	case *vectorstore.Qdrant:
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	case *vectorstore.PGVector:
		s.Close()
	}
	return errors.Join(errs...)
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"applicant-rag/internal/bootstrap"
	"applicant-rag/internal/transport/http/handler"
	"applicant-rag/internal/transport/http/middleware"
)

// Deps are the services behind the routes. Publisher may be nil.
type Deps struct {
	Name      string
	Env       string
	GinMode   string
	StartedAt time.Time

	Ingestion handler.Ingestion
	Publisher handler.JobPublisher
	Assist    handler.DocAssistant
	Screening handler.Screener
	Evidence  handler.EvidenceWriter
	Checks    map[string]handler.Check
	Metrics   http.Handler

	UploadDir      string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	Log            zerolog.Logger
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	deps := Deps{
		Name:           cfg.App.Name,
		Env:            cfg.App.Env,
		GinMode:        cfg.HTTP.GinMode,
		StartedAt:      app.StartedAt,
		Ingestion:      app.Ingestion,
		Assist:         app.Assist,
		Screening:      app.Screening,
		Evidence:       app.Evidence,
		Checks:         make(map[string]handler.Check),
		Metrics:        app.Metrics.Handler(),
		UploadDir:      cfg.HTTP.UploadDir,
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		Log:            app.Log.With().Str("component", "http").Logger(),
	}
	if app.Publisher != nil {
		deps.Publisher = app.Publisher
	}
	for name, check := range app.Checks() {
		deps.Checks[name] = handler.Check(check)
	}
	return Router(deps)
}

func Router(deps Deps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(deps.Log), middleware.RequestLogger(deps.Log))
	if deps.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = deps.MaxUploadBytes
	}

	healthHandler := handler.NewHealthHandler(deps.Name, deps.Env, deps.StartedAt, deps.Checks)
	router.GET("/healthz", healthHandler.Check)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	ingestHandler := handler.NewIngestHandler(deps.Ingestion, deps.Publisher, deps.UploadDir, deps.MaxUploadBytes)
	assistHandler := handler.NewAssistHandler(deps.Assist, deps.Screening)
	evidenceHandler := handler.NewEvidenceHandler(deps.Evidence)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))
	v1.POST("/vectorize-files", ingestHandler.VectorizeFiles)
	v1.POST("/documents", ingestHandler.Upload)
	v1.POST("/delete-file-vectors", ingestHandler.DeleteFileVectors)
	v1.GET("/files", ingestHandler.ListFiles)

	v1.POST("/docassist", assistHandler.DocAssist)
	v1.POST("/summarize", assistHandler.Summarize)
	v1.POST("/questionnaires", assistHandler.ImportQuestionnaire)
	v1.GET("/screenings/latest", assistHandler.LatestScreening)
	v1.POST("/evidence", evidenceHandler.Generate)
	v1.GET("/evidence/latest", evidenceHandler.Latest)

	return router
}

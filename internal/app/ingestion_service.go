package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"applicant-rag/internal/domain"
	"applicant-rag/internal/metrics"
	"applicant-rag/internal/model"
	"applicant-rag/internal/vectorstore"
)

type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

type ChunkSplitter interface {
	Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error)
}

type ChunkIndexer interface {
	Index(ctx context.Context, chunks []domain.Chunk, collection string, tag domain.Tag, filename string) (int, error)
}

type FileRecorder interface {
	Upsert(ctx context.Context, f *model.VectorizedFile) error
	ListByCollection(ctx context.Context, collection string) ([]model.VectorizedFile, error)
	Delete(ctx context.Context, collection, tag, filename string) error
}

type IngestionService struct {
	loader   DocumentLoader
	splitter ChunkSplitter
	indexer  ChunkIndexer
	store    vectorstore.Store
	// records is nil when no metadata store is configured.
	records FileRecorder
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewIngestionService(
	loader DocumentLoader,
	splitter ChunkSplitter,
	indexer ChunkIndexer,
	store vectorstore.Store,
	records FileRecorder,
	m *metrics.Metrics,
	log zerolog.Logger,
) *IngestionService {
	return &IngestionService{
		loader:   loader,
		splitter: splitter,
		indexer:  indexer,
		store:    store,
		records:  records,
		metrics:  m,
		log:      log,
	}
}

type VectorizeInput struct {
	AttorneyID  string
	ApplicantID string
	Tag         domain.Tag
	// Path is read by the loader; Filename defaults to its base name.
	Path     string
	Filename string
}

type IngestResult struct {
	Collection string           `json:"collection"`
	Filename   string           `json:"filename"`
	Tag        domain.Tag       `json:"tag"`
	ChunkCount int              `json:"chunk_count"`
	Status     model.FileStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
}

func (in VectorizeInput) validate() error {
	if err := checkOwner(in.AttorneyID, in.ApplicantID); err != nil {
		return err
	}
	if !in.Tag.Valid() {
		return fmt.Errorf("%w: tag is required", domain.ErrUnknownTag)
	}
	if strings.TrimSpace(in.Path) == "" {
		return fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}
	return nil
}

// Vectorize loads, splits and indexes one file. A file that yields no chunk
// is reported with status empty and no error.
func (s *IngestionService) Vectorize(ctx context.Context, in VectorizeInput) (*IngestResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	filename := in.Filename
	if filename == "" {
		filename = filepath.Base(in.Path)
	}
	res := &IngestResult{
		Collection: domain.CollectionName(in.AttorneyID, in.ApplicantID),
		Filename:   filename,
		Tag:        in.Tag,
		Status:     model.FileInProgress,
	}
	log := s.log.With().Str("collection", res.Collection).Str("filename", filename).Str("tag", in.Tag.String()).Logger()

	s.record(ctx, in, res)

	count, err := s.ingest(ctx, in.Path, res.Collection, in.Tag, filename)
	switch {
	case err != nil:
		res.Status = model.FileFailed
		res.Error = err.Error()
		log.Error().Err(err).Msg("vectorize file failed")
	case count == 0:
		res.Status = model.FileEmpty
		log.Warn().Msg("file produced no chunks")
	default:
		res.Status = model.FileVectorized
		res.ChunkCount = count
		log.Info().Int("chunks", count).Msg("file vectorized")
	}
	s.metrics.IncFileIngested(string(res.Status))
	s.record(context.WithoutCancel(ctx), in, res)

	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *IngestionService) ingest(ctx context.Context, path, collection string, tag domain.Tag, filename string) (int, error) {
	docs, err := s.loader.Load(s.log.WithContext(ctx), path)
	if err != nil {
		return 0, err
	}
	chunks, err := s.splitter.Split(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("split %s failed: %w", filename, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	return s.indexer.Index(ctx, chunks, collection, tag, filename)
}

// VectorizeFiles ingests each file independently and reports one result per
// input; a failing file does not stop the others.
func (s *IngestionService) VectorizeFiles(ctx context.Context, inputs []VectorizeInput) ([]IngestResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrInvalidInput)
	}
	for _, in := range inputs {
		if err := in.validate(); err != nil {
			return nil, err
		}
	}
	results := make([]IngestResult, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, _ := s.Vectorize(ctx, in)
		results = append(results, *res)
	}
	return results, nil
}

func (s *IngestionService) record(ctx context.Context, in VectorizeInput, res *IngestResult) {
	if s.records == nil {
		return
	}
	err := s.records.Upsert(ctx, &model.VectorizedFile{
		AttorneyID:  in.AttorneyID,
		ApplicantID: in.ApplicantID,
		Collection:  res.Collection,
		Tag:         res.Tag.String(),
		Filename:    res.Filename,
		Status:      res.Status,
		ChunkCount:  res.ChunkCount,
		Error:       res.Error,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("filename", res.Filename).Msg("record vectorized file failed")
	}
}

type DeleteInput struct {
	AttorneyID  string
	ApplicantID string
	Tag         domain.Tag
	Filename    string
}

// DeleteFileVectors removes every vector of one file. A missing collection
// means there is nothing to delete.
func (s *IngestionService) DeleteFileVectors(ctx context.Context, in DeleteInput) error {
	if err := checkOwner(in.AttorneyID, in.ApplicantID); err != nil {
		return err
	}
	collection := domain.CollectionName(in.AttorneyID, in.ApplicantID)
	filter := vectorstore.DeleteFilter{Tag: in.Tag, Filename: in.Filename}
	if err := filter.Validate(); err != nil {
		return err
	}

	exists, err := s.store.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		if err := s.store.Delete(ctx, collection, filter); err != nil {
			return err
		}
	}
	if s.records != nil {
		if err := s.records.Delete(ctx, collection, in.Tag.String(), in.Filename); err != nil {
			return err
		}
	}
	s.log.Info().Str("collection", collection).Str("filename", in.Filename).Str("tag", in.Tag.String()).
		Bool("collection_exists", exists).Msg("file vectors deleted")
	return nil
}

func (s *IngestionService) ListFiles(ctx context.Context, attorneyID, applicantID string) ([]model.VectorizedFile, error) {
	if s.records == nil {
		return nil, ErrNotConfigured
	}
	if err := checkOwner(attorneyID, applicantID); err != nil {
		return nil, err
	}
	return s.records.ListByCollection(ctx, domain.CollectionName(attorneyID, applicantID))
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/expander"
	"applicant-rag/internal/retriever"
	"applicant-rag/internal/vectorstore"
)

type QueryExpander interface {
	Expand(ctx context.Context, question string) ([]string, error)
}

type ChunkRetriever interface {
	Retrieve(ctx context.Context, collection string, queries []string, k int, filter *vectorstore.Filter) (*retriever.Result, error)
}

type ContextAssembler interface {
	Assemble(chunks []domain.Chunk, maxTokens int) string
}

// AssistService answers a single prompt from an applicant's documents.
type AssistService struct {
	expander  QueryExpander
	retriever ChunkRetriever
	assembler ContextAssembler
	llm       ai.Completer
	limit     int
	log       zerolog.Logger
}

func NewAssistService(
	exp QueryExpander,
	ret ChunkRetriever,
	asm ContextAssembler,
	llm ai.Completer,
	limit int,
	log zerolog.Logger,
) *AssistService {
	if limit <= 0 {
		limit = retriever.DefaultLimit
	}
	return &AssistService{
		expander:  exp,
		retriever: ret,
		assembler: asm,
		llm:       llm,
		limit:     limit,
		log:       log,
	}
}

// Request expands the question, retrieves the matching chunks and asks the
// model for an answer at the prompt's detail level.
func (s *AssistService) Request(ctx context.Context, collection string, p domain.Prompt) (*domain.QandA, error) {
	question := strings.TrimSpace(p.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if !p.DetailLevel.Valid() {
		return nil, fmt.Errorf("%w: detail level is required", domain.ErrUnknownDetailLevel)
	}

	queries, err := s.expander.Expand(ctx, question)
	if err != nil {
		return nil, err
	}
	var filter *vectorstore.Filter
	if len(p.Tags) > 0 || len(p.Filenames) > 0 {
		filter = &vectorstore.Filter{Tags: p.Tags, Filenames: p.Filenames}
	}
	res, err := s.retriever.Retrieve(ctx, collection, queries, s.limit, filter)
	if err != nil {
		return nil, err
	}

	window := s.assembler.Assemble(res.Chunks, 0)
	answer, err := s.llm.Complete(ctx, expander.RolePrompt, answerPrompt(window, question, p.DetailLevel))
	if err != nil {
		return nil, fmt.Errorf("answer question failed: %w", err)
	}
	s.log.Debug().Str("collection", collection).Int("queries", len(queries)).Int("chunks", len(res.Chunks)).Msg("prompt answered")
	return &domain.QandA{Question: p.Question, Answer: answer, Source: res.SourceSummary}, nil
}

func answerPrompt(window, question string, detail domain.DetailLevel) string {
	return fmt.Sprintf("Given the context: \n%s, \n answer the following: %s in %s.", window, question, detail)
}

type DocAssistInput struct {
	AttorneyID  string
	ApplicantID string
	Message     string
	Tags        []domain.Tag
}

// DocAssist answers a free-form message at moderate detail and appends the
// source attribution to the answer text.
func (s *AssistService) DocAssist(ctx context.Context, in DocAssistInput) (string, error) {
	if err := checkOwner(in.AttorneyID, in.ApplicantID); err != nil {
		return "", err
	}
	qa, err := s.Request(ctx, domain.CollectionName(in.AttorneyID, in.ApplicantID), domain.Prompt{
		Question:    in.Message,
		DetailLevel: domain.DetailModerate,
		Tags:        in.Tags,
	})
	if err != nil {
		return "", err
	}
	return qa.Answer + "\t(Source: " + qa.Source + ")", nil
}

package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"applicant-rag/internal/domain"
	"applicant-rag/internal/model"
)

const defaultScreeningConcurrency = 4

type PromptAnswerer interface {
	Request(ctx context.Context, collection string, p domain.Prompt) (*domain.QandA, error)
}

type ScreeningStore interface {
	Create(ctx context.Context, s *model.Screening) error
	Latest(ctx context.Context, attorneyID, applicantID string) (*model.Screening, error)
}

type QuestionnaireStore interface {
	Replace(ctx context.Context, attorneyID, applicantID string, items []model.QuestionnaireItem) error
	List(ctx context.Context, attorneyID, applicantID string) ([]model.QuestionnaireItem, error)
}

type ScreeningService struct {
	answerer    PromptAnswerer
	screenings  ScreeningStore
	templates   QuestionnaireStore
	concurrency int
	log         zerolog.Logger
}

// NewScreeningService accepts nil stores; summaries are then returned but
// not persisted and stored questionnaires are unavailable.
func NewScreeningService(answerer PromptAnswerer, screenings ScreeningStore, templates QuestionnaireStore, concurrency int, log zerolog.Logger) *ScreeningService {
	if concurrency <= 0 {
		concurrency = defaultScreeningConcurrency
	}
	return &ScreeningService{
		answerer:    answerer,
		screenings:  screenings,
		templates:   templates,
		concurrency: concurrency,
		log:         log,
	}
}

type SummarizeInput struct {
	AttorneyID  string
	ApplicantID string
	// Prompts overrides the applicant's stored questionnaire when set.
	Prompts []domain.Prompt
}

type Screening struct {
	ID          uint           `json:"id,omitempty"`
	AttorneyID  string         `json:"attorney_id"`
	ApplicantID string         `json:"applicant_id"`
	Summary     []domain.QandA `json:"summary"`
}

// Summarize answers every prompt, keeping the answers in prompt order, and
// stores the result as a screening.
func (s *ScreeningService) Summarize(ctx context.Context, in SummarizeInput) (*Screening, error) {
	if err := checkOwner(in.AttorneyID, in.ApplicantID); err != nil {
		return nil, err
	}
	prompts := in.Prompts
	if len(prompts) == 0 {
		stored, err := s.storedPrompts(ctx, in.AttorneyID, in.ApplicantID)
		if err != nil {
			return nil, err
		}
		prompts = stored
	}
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}

	collection := domain.CollectionName(in.AttorneyID, in.ApplicantID)
	answers := make([]domain.QandA, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range prompts {
		g.Go(func() error {
			qa, err := s.answerer.Request(gctx, collection, p)
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i+1, err)
			}
			answers[i] = *qa
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Screening{AttorneyID: in.AttorneyID, ApplicantID: in.ApplicantID, Summary: answers}
	if s.screenings != nil {
		rec := &model.Screening{AttorneyID: in.AttorneyID, ApplicantID: in.ApplicantID}
		for i, qa := range answers {
			rec.Answers = append(rec.Answers, model.ScreeningAnswer{
				Position: i,
				Question: qa.Question,
				Answer:   qa.Answer,
				Source:   qa.Source,
			})
		}
		if err := s.screenings.Create(ctx, rec); err != nil {
			return nil, err
		}
		out.ID = rec.ID
	}
	s.log.Info().Str("collection", collection).Int("prompts", len(prompts)).Uint("screening_id", out.ID).Msg("screening generated")
	return out, nil
}

func (s *ScreeningService) storedPrompts(ctx context.Context, attorneyID, applicantID string) ([]domain.Prompt, error) {
	if s.templates == nil {
		return nil, nil
	}
	items, err := s.templates.List(ctx, attorneyID, applicantID)
	if err != nil {
		return nil, err
	}
	prompts := make([]domain.Prompt, 0, len(items))
	for _, it := range items {
		p, err := promptFromItem(it)
		if err != nil {
			return nil, fmt.Errorf("stored question %d: %w", it.Position+1, err)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func promptFromItem(it model.QuestionnaireItem) (domain.Prompt, error) {
	detail, err := domain.ParseDetailLevel(it.DetailLevel)
	if err != nil {
		return domain.Prompt{}, err
	}
	tags, err := domain.ParseTags(it.Tags)
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{Question: it.Question, DetailLevel: detail, Tags: tags, Filenames: it.Filenames}, nil
}

// ImportQuestionnaire replaces the applicant's stored questionnaire.
func (s *ScreeningService) ImportQuestionnaire(ctx context.Context, attorneyID, applicantID string, prompts []domain.Prompt) error {
	if s.templates == nil {
		return ErrNotConfigured
	}
	if err := checkOwner(attorneyID, applicantID); err != nil {
		return err
	}
	if len(prompts) == 0 {
		return ErrNoPrompts
	}
	items := make([]model.QuestionnaireItem, 0, len(prompts))
	for i, p := range prompts {
		if !p.DetailLevel.Valid() {
			return fmt.Errorf("question %d: %w", i+1, domain.ErrUnknownDetailLevel)
		}
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, t.String())
		}
		items = append(items, model.QuestionnaireItem{
			AttorneyID:  attorneyID,
			ApplicantID: applicantID,
			Position:    i,
			Question:    p.Question,
			DetailLevel: p.DetailLevel.String(),
			Tags:        tags,
			Filenames:   p.Filenames,
		})
	}
	if err := s.templates.Replace(ctx, attorneyID, applicantID, items); err != nil {
		return err
	}
	s.log.Info().Str("attorney_id", attorneyID).Str("applicant_id", applicantID).Int("questions", len(items)).Msg("questionnaire imported")
	return nil
}

// LatestScreening returns the newest stored screening, or nil.
func (s *ScreeningService) LatestScreening(ctx context.Context, attorneyID, applicantID string) (*Screening, error) {
	if s.screenings == nil {
		return nil, ErrNotConfigured
	}
	if err := checkOwner(attorneyID, applicantID); err != nil {
		return nil, err
	}
	rec, err := s.screenings.Latest(ctx, attorneyID, applicantID)
	if err != nil || rec == nil {
		return nil, err
	}
	out := &Screening{ID: rec.ID, AttorneyID: rec.AttorneyID, ApplicantID: rec.ApplicantID}
	for _, a := range rec.Answers {
		out.Summary = append(out.Summary, domain.QandA{Question: a.Question, Answer: a.Answer, Source: a.Source})
	}
	return out, nil
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/expander"
	"applicant-rag/internal/model"
)

const CoverLetterPrompt = "Draft a cover letter from the attorney in support of the candidate's application. " +
	"Open with a short introduction of the candidate and the purpose of the letter, then present the " +
	"candidate's research, awards, reviews and other achievements as evidence, one paragraph per theme, " +
	"and close with a concise recommendation. Use only the screening answers below as facts; leave out " +
	"any theme they do not cover."

type ScreeningSource interface {
	LatestScreening(ctx context.Context, attorneyID, applicantID string) (*Screening, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, letter *model.EvidenceLetter) error
	Latest(ctx context.Context, attorneyID, applicantID string) (*model.EvidenceLetter, error)
}

// EvidenceService drafts cover letters from screenings.
type EvidenceService struct {
	screenings ScreeningSource
	llm        ai.Completer
	letters    EvidenceStore
	log        zerolog.Logger
}

// NewEvidenceService accepts a nil store; letters are then returned but not
// persisted.
func NewEvidenceService(screenings ScreeningSource, llm ai.Completer, letters EvidenceStore, log zerolog.Logger) *EvidenceService {
	return &EvidenceService{screenings: screenings, llm: llm, letters: letters, log: log}
}

type EvidenceLetter struct {
	ID          uint   `json:"id,omitempty"`
	AttorneyID  string `json:"attorney_id"`
	ApplicantID string `json:"applicant_id"`
	ScreeningID uint   `json:"screening_id,omitempty"`
	Letter      string `json:"letter"`
}

// Generate drafts a letter from the applicant's latest screening.
func (s *EvidenceService) Generate(ctx context.Context, attorneyID, applicantID string) (*EvidenceLetter, error) {
	if err := checkOwner(attorneyID, applicantID); err != nil {
		return nil, err
	}
	screening, err := s.screenings.LatestScreening(ctx, attorneyID, applicantID)
	if err != nil {
		return nil, err
	}
	if screening == nil {
		return nil, ErrNoScreening
	}
	return s.GenerateFrom(ctx, screening)
}

// GenerateFrom drafts a letter from the given screening and stores it.
func (s *EvidenceService) GenerateFrom(ctx context.Context, screening *Screening) (*EvidenceLetter, error) {
	if screening == nil || len(screening.Summary) == 0 {
		return nil, ErrNoScreening
	}
	if err := checkOwner(screening.AttorneyID, screening.ApplicantID); err != nil {
		return nil, err
	}

	letter, err := s.llm.Complete(ctx, expander.RolePrompt, EvidencePrompt(screening))
	if err != nil {
		return nil, fmt.Errorf("draft evidence letter failed: %w", err)
	}
	out := &EvidenceLetter{
		AttorneyID:  screening.AttorneyID,
		ApplicantID: screening.ApplicantID,
		ScreeningID: screening.ID,
		Letter:      strings.TrimSpace(letter),
	}

	if s.letters != nil {
		rec := &model.EvidenceLetter{
			AttorneyID:  out.AttorneyID,
			ApplicantID: out.ApplicantID,
			ScreeningID: out.ScreeningID,
			Letter:      out.Letter,
		}
		if err := s.letters.Create(ctx, rec); err != nil {
			return nil, err
		}
		out.ID = rec.ID
	}
	s.log.Info().Str("attorney_id", out.AttorneyID).Str("applicant_id", out.ApplicantID).
		Uint("screening_id", out.ScreeningID).Int("answers", len(screening.Summary)).Msg("evidence letter drafted")
	return out, nil
}

// LatestEvidence returns the newest stored letter, or nil.
func (s *EvidenceService) LatestEvidence(ctx context.Context, attorneyID, applicantID string) (*EvidenceLetter, error) {
	if s.letters == nil {
		return nil, ErrNotConfigured
	}
	if err := checkOwner(attorneyID, applicantID); err != nil {
		return nil, err
	}
	rec, err := s.letters.Latest(ctx, attorneyID, applicantID)
	if err != nil || rec == nil {
		return nil, err
	}
	return &EvidenceLetter{
		ID:          rec.ID,
		AttorneyID:  rec.AttorneyID,
		ApplicantID: rec.ApplicantID,
		ScreeningID: rec.ScreeningID,
		Letter:      rec.Letter,
	}, nil
}

// EvidencePrompt appends every screening answer to the cover letter
// instructions, in screening order.
func EvidencePrompt(screening *Screening) string {
	var b strings.Builder
	b.WriteString(CoverLetterPrompt)
	for _, qa := range screening.Summary {
		fmt.Fprintf(&b, "\n\nQuestion asked to candidate:\n%s\nCandidate responded with:\n%s", qa.Question, qa.Answer)
	}
	b.WriteString("\n\n")
	return b.String()
}

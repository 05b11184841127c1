package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicant-rag/internal/domain"
	"applicant-rag/internal/expander"
	"applicant-rag/internal/model"
)

type stubScreenings struct {
	screening *Screening
	err       error
}

func (s stubScreenings) LatestScreening(context.Context, string, string) (*Screening, error) {
	return s.screening, s.err
}

type recordingCompleter struct {
	system, user string
	err          error
}

func (c *recordingCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.system, c.user = system, user
	if c.err != nil {
		return "", c.err
	}
	return "  Dear officer,\nThe candidate is exceptional.  ", nil
}

type memLetters struct {
	saved []model.EvidenceLetter
}

func (m *memLetters) Create(_ context.Context, l *model.EvidenceLetter) error {
	l.ID = uint(len(m.saved) + 1)
	m.saved = append(m.saved, *l)
	return nil
}

func (m *memLetters) Latest(_ context.Context, att, app string) (*model.EvidenceLetter, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].AttorneyID == att && m.saved[i].ApplicantID == app {
			l := m.saved[i]
			return &l, nil
		}
	}
	return nil, nil
}

func sampleScreening() *Screening {
	return &Screening{ID: 7, AttorneyID: "att", ApplicantID: "app", Summary: []domain.QandA{
		{Question: "What awards?", Answer: "Best paper 2021."},
		{Question: "Who reviewed?", Answer: "Twelve journals."},
	}}
}

func TestEvidenceGenerateStoresLetter(t *testing.T) {
	llm := &recordingCompleter{}
	letters := &memLetters{}
	svc := NewEvidenceService(stubScreenings{screening: sampleScreening()}, llm, letters, zerolog.Nop())

	out, err := svc.Generate(context.Background(), "att", "app")
	require.NoError(t, err)
	assert.Equal(t, "Dear officer,\nThe candidate is exceptional.", out.Letter)
	assert.Equal(t, uint(7), out.ScreeningID)
	assert.Equal(t, uint(1), out.ID)
	assert.Equal(t, expander.RolePrompt, llm.system)

	require.Len(t, letters.saved, 1)
	assert.Equal(t, uint(7), letters.saved[0].ScreeningID)

	latest, err := svc.LatestEvidence(context.Background(), "att", "app")
	require.NoError(t, err)
	assert.Equal(t, out, latest)
}

func TestEvidencePromptKeepsAnswerOrder(t *testing.T) {
	prompt := EvidencePrompt(sampleScreening())
	assert.True(t, strings.HasPrefix(prompt, CoverLetterPrompt))
	first := strings.Index(prompt, "Question asked to candidate:\nWhat awards?\nCandidate responded with:\nBest paper 2021.")
	second := strings.Index(prompt, "Question asked to candidate:\nWho reviewed?\nCandidate responded with:\nTwelve journals.")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestEvidenceWithoutScreening(t *testing.T) {
	llm := &recordingCompleter{}
	svc := NewEvidenceService(stubScreenings{}, llm, nil, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "att", "app")
	assert.ErrorIs(t, err, ErrNoScreening)
	assert.Empty(t, llm.user)

	_, err = svc.GenerateFrom(context.Background(), &Screening{AttorneyID: "att", ApplicantID: "app"})
	assert.ErrorIs(t, err, ErrNoScreening)
}

func TestEvidenceErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewEvidenceService(stubScreenings{err: ErrNotConfigured}, &recordingCompleter{}, nil, zerolog.Nop())
	_, err := svc.Generate(ctx, "att", "app")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.Generate(ctx, "../att", "app")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrInvalidOwnerID)

	_, err = svc.LatestEvidence(ctx, "att", "app")
	assert.ErrorIs(t, err, ErrNotConfigured)

	boom := errors.New("provider down")
	letters := &memLetters{}
	svc = NewEvidenceService(stubScreenings{screening: sampleScreening()}, &recordingCompleter{err: boom}, letters, zerolog.Nop())
	_, err = svc.Generate(ctx, "att", "app")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, letters.saved)
}

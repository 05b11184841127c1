package app

import (
	"errors"
	"fmt"

	"applicant-rag/internal/domain"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoPrompts          = errors.New("no prompts to answer")
	ErrNotConfigured      = errors.New("metadata store is not configured")
	ErrQueueNotConfigured = errors.New("job queue is not configured")
	ErrJobEnqueue         = errors.New("job enqueue failed")
	ErrNoScreening        = errors.New("no screening to draft evidence from")
)

func checkOwner(attorneyID, applicantID string) error {
	if err := domain.ValidateOwnerIDs(attorneyID, applicantID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/loader"
	"applicant-rag/internal/questionnaire"
	"applicant-rag/internal/throttle"
	"applicant-rag/internal/transport/http/response"
	"applicant-rag/internal/vectorstore"
)

// writeError maps err to a status and response code. Unclassified errors
// are reported as "<action> failed" without their cause.
func writeError(c *gin.Context, err error, action string) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = action + " failed"
	}
	_ = c.Error(err)
	response.Error(c, status, code, msg)
}

func classify(err error) (int, int) {
	var dim *vectorstore.DimensionMismatchError
	switch {
	case errors.Is(err, domain.ErrUnknownTag), errors.Is(err, domain.ErrUnknownDetailLevel):
		return http.StatusBadRequest, response.CodeUnknownEnum
	case errors.Is(err, loader.ErrUnsupportedFormat), errors.Is(err, loader.ErrEmptyPath):
		return http.StatusBadRequest, response.CodeUnsupportedFormat
	case errors.Is(err, app.ErrNoPrompts):
		return http.StatusBadRequest, response.CodeNoPrompts
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidOwnerID),
		errors.Is(err, vectorstore.ErrInvalidFilter),
		errors.Is(err, questionnaire.ErrNoQuestions),
		errors.Is(err, ai.ErrEmptyInput):
		return http.StatusBadRequest, response.CodeBadRequest
	case errors.Is(err, vectorstore.ErrCollectionNotFound), errors.Is(err, os.ErrNotExist), errors.Is(err, app.ErrNoScreening):
		return http.StatusNotFound, response.CodeNotFound
	case errors.As(err, &dim), errors.Is(err, vectorstore.ErrDimensionMismatch):
		return http.StatusConflict, response.CodeDimensionConflict
	case ai.RateLimited(err):
		return http.StatusTooManyRequests, response.CodeTooManyRequests
	case errors.Is(err, throttle.ErrTimeout), errors.Is(err, app.ErrJobEnqueue):
		return http.StatusServiceUnavailable, response.CodeUnavailable
	case errors.Is(err, app.ErrNotConfigured), errors.Is(err, app.ErrQueueNotConfigured):
		return http.StatusNotImplemented, response.CodeNotConfigured
	}
	return http.StatusInternalServerError, response.CodeInternalServer
}

func badRequest(c *gin.Context, msg string) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, msg)
}

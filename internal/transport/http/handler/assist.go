package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/questionnaire"
	"applicant-rag/internal/transport/http/response"
)

type DocAssistant interface {
	DocAssist(ctx context.Context, in app.DocAssistInput) (string, error)
}

type Screener interface {
	Summarize(ctx context.Context, in app.SummarizeInput) (*app.Screening, error)
	ImportQuestionnaire(ctx context.Context, attorneyID, applicantID string, prompts []domain.Prompt) error
	LatestScreening(ctx context.Context, attorneyID, applicantID string) (*app.Screening, error)
}

type AssistHandler struct {
	assist    DocAssistant
	screening Screener
}

func NewAssistHandler(assist DocAssistant, screening Screener) *AssistHandler {
	return &AssistHandler{assist: assist, screening: screening}
}

type DocAssistRequest struct {
	AttorneyID  string   `json:"attorney_id" binding:"required"`
	ApplicantID string   `json:"applicant_id" binding:"required"`
	Message     string   `json:"message" binding:"required"`
	Tags        []string `json:"tags"`
}

type PromptRequest struct {
	Question  string   `json:"question" binding:"required"`
	Detail    string   `json:"detail"`
	Tags      []string `json:"tags"`
	Filenames []string `json:"filenames"`
}

type SummarizeRequest struct {
	AttorneyID  string          `json:"attorney_id" binding:"required"`
	ApplicantID string          `json:"applicant_id" binding:"required"`
	Prompts     []PromptRequest `json:"prompts" binding:"dive"`
}

func (h *AssistHandler) DocAssist(c *gin.Context) {
	var req DocAssistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	tags, err := domain.ParseTags(req.Tags)
	if err != nil {
		writeError(c, err, "docassist")
		return
	}

	out, err := h.assist.DocAssist(c.Request.Context(), app.DocAssistInput{
		AttorneyID:  req.AttorneyID,
		ApplicantID: req.ApplicantID,
		Message:     req.Message,
		Tags:        tags,
	})
	if err != nil {
		writeError(c, err, "docassist")
		return
	}
	response.OK(c, gin.H{"response": out})
}

// Summarize answers the given prompts, or the applicant's stored
// questionnaire when none are given.
func (h *AssistHandler) Summarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	prompts := make([]domain.Prompt, 0, len(req.Prompts))
	for i, p := range req.Prompts {
		prompt, err := p.toPrompt()
		if err != nil {
			writeError(c, fmt.Errorf("prompt %d: %w", i+1, err), "summarize")
			return
		}
		prompts = append(prompts, prompt)
	}

	screening, err := h.screening.Summarize(c.Request.Context(), app.SummarizeInput{
		AttorneyID:  req.AttorneyID,
		ApplicantID: req.ApplicantID,
		Prompts:     prompts,
	})
	if err != nil {
		writeError(c, err, "summarize")
		return
	}
	response.OK(c, screening)
}

// ImportQuestionnaire reads a YAML (or JSON) questionnaire from the body.
func (h *AssistHandler) ImportQuestionnaire(c *gin.Context) {
	attorneyID := strings.TrimSpace(c.Query("attorney_id"))
	applicantID := strings.TrimSpace(c.Query("applicant_id"))
	if attorneyID == "" || applicantID == "" {
		badRequest(c, "attorney_id and applicant_id are required")
		return
	}
	prompts, err := questionnaire.Parse(c.Request.Body)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", app.ErrInvalidInput, err), "import questionnaire")
		return
	}
	if err := h.screening.ImportQuestionnaire(c.Request.Context(), attorneyID, applicantID, prompts); err != nil {
		writeError(c, err, "import questionnaire")
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"questions": len(prompts)})
}

func (h *AssistHandler) LatestScreening(c *gin.Context) {
	screening, err := h.screening.LatestScreening(c.Request.Context(), c.Query("attorney_id"), c.Query("applicant_id"))
	if err != nil {
		writeError(c, err, "latest screening")
		return
	}
	if screening == nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "no screening found")
		return
	}
	response.OK(c, screening)
}

func (p PromptRequest) toPrompt() (domain.Prompt, error) {
	detail := domain.DetailModerate
	if strings.TrimSpace(p.Detail) != "" {
		d, err := domain.ParseDetailLevel(p.Detail)
		if err != nil {
			return domain.Prompt{}, err
		}
		detail = d
	}
	tags, err := domain.ParseTags(p.Tags)
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{Question: strings.TrimSpace(p.Question), DetailLevel: detail, Tags: tags, Filenames: p.Filenames}, nil
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"applicant-rag/internal/app"
	"applicant-rag/internal/transport/http/response"
)

type EvidenceWriter interface {
	Generate(ctx context.Context, attorneyID, applicantID string) (*app.EvidenceLetter, error)
	LatestEvidence(ctx context.Context, attorneyID, applicantID string) (*app.EvidenceLetter, error)
}

type EvidenceHandler struct {
	evidence EvidenceWriter
}

func NewEvidenceHandler(evidence EvidenceWriter) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence}
}

type EvidenceRequest struct {
	AttorneyID  string `json:"attorney_id" binding:"required"`
	ApplicantID string `json:"applicant_id" binding:"required"`
}

// Generate drafts a cover letter from the applicant's latest screening.
func (h *EvidenceHandler) Generate(c *gin.Context) {
	var req EvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	letter, err := h.evidence.Generate(c.Request.Context(), req.AttorneyID, req.ApplicantID)
	if err != nil {
		writeError(c, err, "generate evidence")
		return
	}
	response.JSON(c, http.StatusCreated, letter)
}

func (h *EvidenceHandler) Latest(c *gin.Context) {
	letter, err := h.evidence.LatestEvidence(c.Request.Context(), c.Query("attorney_id"), c.Query("applicant_id"))
	if err != nil {
		writeError(c, err, "latest evidence")
		return
	}
	if letter == nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "no evidence letter found")
		return
	}
	response.OK(c, letter)
}

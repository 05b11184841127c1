package handler

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/model"
	"applicant-rag/internal/transport/http/response"
)

type Ingestion interface {
	Vectorize(ctx context.Context, in app.VectorizeInput) (*app.IngestResult, error)
	VectorizeFiles(ctx context.Context, inputs []app.VectorizeInput) ([]app.IngestResult, error)
	DeleteFileVectors(ctx context.Context, in app.DeleteInput) error
	ListFiles(ctx context.Context, attorneyID, applicantID string) ([]model.VectorizedFile, error)
}

type JobPublisher interface {
	Publish(ctx context.Context, job model.Job) (string, error)
}

type IngestHandler struct {
	ingestion Ingestion
	// publisher is nil when no queue is configured; async requests then fail.
	publisher JobPublisher
	uploadDir string
	maxUpload int64
}

func NewIngestHandler(ingestion Ingestion, publisher JobPublisher, uploadDir string, maxUploadBytes int64) *IngestHandler {
	return &IngestHandler{
		ingestion: ingestion,
		publisher: publisher,
		uploadDir: uploadDir,
		maxUpload: maxUploadBytes,
	}
}

type FileRef struct {
	Path     string `json:"path" binding:"required"`
	Filename string `json:"filename"`
}

type VectorizeFilesRequest struct {
	AttorneyID  string    `json:"attorney_id" binding:"required"`
	ApplicantID string    `json:"applicant_id" binding:"required"`
	Tag         string    `json:"tag" binding:"required"`
	Files       []FileRef `json:"files" binding:"required,min=1,dive"`
	Async       bool      `json:"async"`
}

type DeleteFileVectorsRequest struct {
	AttorneyID  string `json:"attorney_id" binding:"required"`
	ApplicantID string `json:"applicant_id" binding:"required"`
	Tag         string `json:"tag" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	Async       bool   `json:"async"`
}

type vectorizeResponse struct {
	Results []app.IngestResult `json:"results"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

// VectorizeFiles indexes files already present under the upload directory.
func (h *IngestHandler) VectorizeFiles(c *gin.Context) {
	var req VectorizeFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	tag, err := domain.ParseTag(req.Tag)
	if err != nil {
		writeError(c, err, "vectorize")
		return
	}

	files := make([]model.JobFile, 0, len(req.Files))
	for _, f := range req.Files {
		path, err := h.resolve(f.Path)
		if err != nil {
			writeError(c, err, "vectorize")
			return
		}
		files = append(files, model.JobFile{Path: path, Filename: f.Filename})
	}
	h.vectorize(c, req.AttorneyID, req.ApplicantID, tag, files, req.Async)
}

// Upload stores multipart files under the upload directory and indexes them.
func (h *IngestHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "invalid multipart form")
		return
	}
	attorneyID := strings.TrimSpace(c.PostForm("attorney_id"))
	applicantID := strings.TrimSpace(c.PostForm("applicant_id"))
	if err := domain.ValidateOwnerIDs(attorneyID, applicantID); err != nil {
		writeError(c, err, "upload")
		return
	}
	tag, err := domain.ParseTag(c.PostForm("tag"))
	if err != nil {
		writeError(c, err, "upload")
		return
	}
	uploads := append(form.File["files"], form.File["file"]...)
	if len(uploads) == 0 {
		badRequest(c, "missing file")
		return
	}

	dir := filepath.Join(h.uploadDir, domain.CollectionName(attorneyID, applicantID), tag.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		writeError(c, err, "upload")
		return
	}
	files := make([]model.JobFile, 0, len(uploads))
	for _, fh := range uploads {
		name, err := h.checkUpload(fh)
		if err != nil {
			writeError(c, err, "upload")
			return
		}
		dst := filepath.Join(dir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			writeError(c, err, "save upload")
			return
		}
		files = append(files, model.JobFile{Path: dst, Filename: name})
	}

	async, _ := strconv.ParseBool(c.PostForm("async"))
	h.vectorize(c, attorneyID, applicantID, tag, files, async)
}

func (h *IngestHandler) vectorize(c *gin.Context, attorneyID, applicantID string, tag domain.Tag, files []model.JobFile, async bool) {
	if async {
		h.enqueue(c, model.Job{
			Kind:        model.JobVectorizeFiles,
			AttorneyID:  attorneyID,
			ApplicantID: applicantID,
			Tag:         tag.String(),
			Files:       files,
		})
		return
	}

	inputs := make([]app.VectorizeInput, len(files))
	for i, f := range files {
		inputs[i] = app.VectorizeInput{AttorneyID: attorneyID, ApplicantID: applicantID, Tag: tag, Path: f.Path, Filename: f.Filename}
	}
	results, err := h.ingestion.VectorizeFiles(c.Request.Context(), inputs)
	if err != nil {
		writeError(c, err, "vectorize")
		return
	}
	response.OK(c, vectorizeResponse{Results: results})
}

func (h *IngestHandler) DeleteFileVectors(c *gin.Context) {
	var req DeleteFileVectorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	tag, err := domain.ParseTag(req.Tag)
	if err != nil {
		writeError(c, err, "delete file vectors")
		return
	}

	if req.Async {
		h.enqueue(c, model.Job{
			Kind:        model.JobDeleteFileVectors,
			AttorneyID:  req.AttorneyID,
			ApplicantID: req.ApplicantID,
			Tag:         tag.String(),
			Filename:    req.Filename,
		})
		return
	}

	err = h.ingestion.DeleteFileVectors(c.Request.Context(), app.DeleteInput{
		AttorneyID:  req.AttorneyID,
		ApplicantID: req.ApplicantID,
		Tag:         tag,
		Filename:    req.Filename,
	})
	if err != nil {
		writeError(c, err, "delete file vectors")
		return
	}
	response.OK(c, gin.H{"deleted_filename": req.Filename, "tag": tag.String()})
}

func (h *IngestHandler) ListFiles(c *gin.Context) {
	files, err := h.ingestion.ListFiles(c.Request.Context(), c.Query("attorney_id"), c.Query("applicant_id"))
	if err != nil {
		writeError(c, err, "list files")
		return
	}
	response.OK(c, files)
}

func (h *IngestHandler) enqueue(c *gin.Context, job model.Job) {
	if h.publisher == nil {
		writeError(c, app.ErrQueueNotConfigured, "enqueue")
		return
	}
	id, err := h.publisher.Publish(c.Request.Context(), job)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", app.ErrJobEnqueue, err), "enqueue")
		return
	}
	response.JSON(c, http.StatusAccepted, jobResponse{JobID: id})
}

// resolve joins relative paths to the upload directory and rejects any
// path that escapes it.
func (h *IngestHandler) resolve(path string) (string, error) {
	root, err := filepath.Abs(h.uploadDir)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q is outside the upload directory", app.ErrInvalidInput, path)
	}
	return path, nil
}

func (h *IngestHandler) checkUpload(fh *multipart.FileHeader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." {
		return "", fmt.Errorf("%w: invalid filename %q", app.ErrInvalidInput, fh.Filename)
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return "", fmt.Errorf("%w: %s exceeds %d MB", app.ErrInvalidInput, name, h.maxUpload>>20)
	}
	return name, nil
}

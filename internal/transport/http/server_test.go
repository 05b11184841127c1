package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/metrics"
	"applicant-rag/internal/model"
	"applicant-rag/internal/throttle"
	"applicant-rag/internal/transport/http/handler"
	"applicant-rag/internal/transport/http/response"
	"applicant-rag/internal/vectorstore"
)

type fakeIngestion struct {
	inputs    []app.VectorizeInput
	deleted   []app.DeleteInput
	deleteErr error
}

func (f *fakeIngestion) Vectorize(_ context.Context, in app.VectorizeInput) (*app.IngestResult, error) {
	f.inputs = append(f.inputs, in)
	return &app.IngestResult{Filename: in.Filename, Tag: in.Tag, Status: model.FileVectorized, ChunkCount: 1}, nil
}

func (f *fakeIngestion) VectorizeFiles(ctx context.Context, inputs []app.VectorizeInput) ([]app.IngestResult, error) {
	out := make([]app.IngestResult, 0, len(inputs))
	for _, in := range inputs {
		res, _ := f.Vectorize(ctx, in)
		out = append(out, *res)
	}
	return out, nil
}

func (f *fakeIngestion) DeleteFileVectors(_ context.Context, in app.DeleteInput) error {
	f.deleted = append(f.deleted, in)
	return f.deleteErr
}

func (f *fakeIngestion) ListFiles(_ context.Context, attorneyID, applicantID string) ([]model.VectorizedFile, error) {
	return []model.VectorizedFile{{AttorneyID: attorneyID, ApplicantID: applicantID, Filename: "cv.pdf", Status: model.FileVectorized}}, nil
}

type fakePublisher struct {
	jobs []model.Job
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, job model.Job) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.jobs = append(p.jobs, job)
	return "job-42", nil
}

type fakeAssist struct {
	err error
	in  app.DocAssistInput
}

func (a *fakeAssist) DocAssist(_ context.Context, in app.DocAssistInput) (string, error) {
	a.in = in
	if a.err != nil {
		return "", a.err
	}
	return "She won two awards.\t(Source: awards.pdf. Pages: [1])", nil
}

type fakeScreening struct {
	imported []domain.Prompt
}

func (s *fakeScreening) Summarize(_ context.Context, in app.SummarizeInput) (*app.Screening, error) {
	if len(in.Prompts) == 0 {
		return nil, app.ErrNoPrompts
	}
	out := &app.Screening{ID: 7, AttorneyID: in.AttorneyID, ApplicantID: in.ApplicantID}
	for _, p := range in.Prompts {
		out.Summary = append(out.Summary, domain.QandA{Question: p.Question, Answer: p.DetailLevel.String()})
	}
	return out, nil
}

func (s *fakeScreening) ImportQuestionnaire(_ context.Context, _, _ string, prompts []domain.Prompt) error {
	s.imported = prompts
	return nil
}

func (s *fakeScreening) LatestScreening(context.Context, string, string) (*app.Screening, error) {
	return nil, nil
}

type fakeEvidence struct {
	err    error
	latest *app.EvidenceLetter
}

func (e *fakeEvidence) Generate(_ context.Context, attorneyID, applicantID string) (*app.EvidenceLetter, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.latest = &app.EvidenceLetter{ID: 3, AttorneyID: attorneyID, ApplicantID: applicantID, ScreeningID: 7, Letter: "Dear officer"}
	return e.latest, nil
}

func (e *fakeEvidence) LatestEvidence(context.Context, string, string) (*app.EvidenceLetter, error) {
	return e.latest, nil
}

type fixture struct {
	ingestion *fakeIngestion
	publisher *fakePublisher
	assist    *fakeAssist
	screening *fakeScreening
	evidence  *fakeEvidence
	uploadDir string
	router    *gin.Engine
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		ingestion: &fakeIngestion{},
		publisher: &fakePublisher{},
		assist:    &fakeAssist{},
		screening: &fakeScreening{},
		evidence:  &fakeEvidence{},
		uploadDir: t.TempDir(),
	}
	deps := Deps{
		Name:           "applicant-rag",
		Env:            "test",
		GinMode:        gin.TestMode,
		StartedAt:      time.Now(),
		Ingestion:      f.ingestion,
		Publisher:      f.publisher,
		Assist:         f.assist,
		Screening:      f.screening,
		Evidence:       f.evidence,
		UploadDir:      f.uploadDir,
		MaxUploadBytes: 1 << 20,
		Log:            zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.router = Router(deps)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp response.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestDocAssist(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/docassist", gin.H{
		"attorney_id": "att", "applicant_id": "app", "message": "which awards?", "tags": []string{"Awards"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "She won two awards.\t(Source: awards.pdf. Pages: [1])", resp.Data.(map[string]any)["response"])
	assert.Equal(t, []domain.Tag{domain.TagAwards}, f.assist.in.Tags)
}

func TestDocAssistErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
		code   int
	}{
		{"missing fields", gin.H{"attorney_id": "att"}, nil, http.StatusBadRequest, response.CodeBadRequest},
		{"unknown tag", gin.H{"attorney_id": "a", "applicant_id": "b", "message": "m", "tags": []string{"hobbies"}}, nil, http.StatusBadRequest, response.CodeUnknownEnum},
		{"missing collection", gin.H{"attorney_id": "a", "applicant_id": "b", "message": "m"}, vectorstore.ErrCollectionNotFound, http.StatusNotFound, response.CodeNotFound},
		{"gate timeout", gin.H{"attorney_id": "a", "applicant_id": "b", "message": "m"}, throttle.ErrTimeout, http.StatusServiceUnavailable, response.CodeUnavailable},
		{"internal", gin.H{"attorney_id": "a", "applicant_id": "b", "message": "m"}, errors.New("secret detail"), http.StatusInternalServerError, response.CodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.assist.err = tt.err
			rec, resp := f.do(t, http.MethodPost, "/api/v1/docassist", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Message, "secret detail")
		})
	}
}

func TestVectorizeFilesSync(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/vectorize-files", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "research",
		"files": []gin.H{{"path": "att_app_collection/cv.pdf", "filename": "cv.pdf"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	results := resp.Data.(map[string]any)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "research", results[0].(map[string]any)["tag"])
	assert.Equal(t, "vectorized", results[0].(map[string]any)["status"])
	require.Len(t, f.ingestion.inputs, 1)
	in := f.ingestion.inputs[0]
	assert.Equal(t, domain.TagResearch, in.Tag)
	assert.True(t, filepath.IsAbs(in.Path))
	assert.Equal(t, "cv.pdf", filepath.Base(in.Path))
}

func TestVectorizeFilesRejectsEscapingPath(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/vectorize-files", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "research",
		"files": []gin.H{{"path": "../../etc/passwd"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeBadRequest, resp.Code)
	assert.Empty(t, f.ingestion.inputs)
}

func TestVectorizeFilesAsync(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/vectorize-files", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "reviews", "async": true,
		"files": []gin.H{{"path": "r.pdf"}},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "job-42", resp.Data.(map[string]any)["job_id"])
	require.Len(t, f.publisher.jobs, 1)
	assert.Equal(t, model.JobVectorizeFiles, f.publisher.jobs[0].Kind)
	assert.Equal(t, "reviews", f.publisher.jobs[0].Tag)
	assert.Empty(t, f.ingestion.inputs)
}

func TestAsyncWithoutQueue(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Publisher = nil })

	rec, resp := f.do(t, http.MethodPost, "/api/v1/delete-file-vectors", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "reviews", "filename": "r.pdf", "async": true,
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, response.CodeNotConfigured, resp.Code)
}

func TestDeleteFileVectors(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/delete-file-vectors", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "Reviews", "filename": "r.pdf",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.ingestion.deleted, 1)
	assert.Equal(t, domain.TagReviews, f.ingestion.deleted[0].Tag)

	f.ingestion.deleteErr = &vectorstore.DimensionMismatchError{Collection: "c", Want: 2, Got: 3}
	rec, _ = f.do(t, http.MethodPost, "/api/v1/delete-file-vectors", gin.H{
		"attorney_id": "att", "applicant_id": "app", "tag": "reviews", "filename": "r.pdf",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUploadDocuments(t *testing.T) {
	f := newFixture(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("attorney_id", "att"))
	require.NoError(t, mw.WriteField("applicant_id", "app"))
	require.NoError(t, mw.WriteField("tag", "awards"))
	part, err := mw.CreateFormFile("files", "../awards.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Best paper 2023"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.ingestion.inputs, 1)
	in := f.ingestion.inputs[0]
	assert.Equal(t, "awards.txt", in.Filename)
	assert.Equal(t, filepath.Join(f.uploadDir, "att_app_collection", "awards", "awards.txt"), in.Path)
	saved, err := os.ReadFile(in.Path)
	require.NoError(t, err)
	assert.Equal(t, "Best paper 2023", string(saved))
}

func TestSummarize(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/summarize", gin.H{
		"attorney_id": "att", "applicant_id": "app",
		"prompts": []gin.H{{"question": "q1", "detail": "heavy"}, {"question": "q2"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := resp.Data.(map[string]any)["summary"].([]any)
	require.Len(t, summary, 2)
	assert.Equal(t, "very heavy detail", summary[0].(map[string]any)["answer"])
	assert.Equal(t, "moderate detail", summary[1].(map[string]any)["answer"])

	rec, resp = f.do(t, http.MethodPost, "/api/v1/summarize", gin.H{"attorney_id": "att", "applicant_id": "app"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeNoPrompts, resp.Code)

	rec, resp = f.do(t, http.MethodPost, "/api/v1/summarize", gin.H{
		"attorney_id": "att", "applicant_id": "app", "prompts": []gin.H{{"question": "q", "detail": "enormous"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeUnknownEnum, resp.Code)
}

func TestImportQuestionnaire(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/questionnaires?attorney_id=att&applicant_id=app",
		"questions:\n  - question: What did the applicant publish?\n    tags: [research]\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, resp.Data.(map[string]any)["questions"])
	require.Len(t, f.screening.imported, 1)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/questionnaires?attorney_id=att&applicant_id=app", "questions: []\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/v1/screenings/latest?attorney_id=att&applicant_id=app", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvidence(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/evidence/latest?attorney_id=att&applicant_id=app", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/evidence", gin.H{"attorney_id": "att", "applicant_id": "app"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dear officer", resp.Data.(map[string]any)["letter"])
	assert.EqualValues(t, 7, resp.Data.(map[string]any)["screening_id"])

	rec, resp = f.do(t, http.MethodGet, "/api/v1/evidence/latest?attorney_id=att&applicant_id=app", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, resp.Data.(map[string]any)["id"])

	rec, _ = f.do(t, http.MethodPost, "/api/v1/evidence", gin.H{"attorney_id": "att"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.evidence.err = app.ErrNoScreening
	rec, resp = f.do(t, http.MethodPost, "/api/v1/evidence", gin.H{"attorney_id": "att", "applicant_id": "app"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeNotFound, resp.Code)
}

func TestListFiles(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodGet, "/api/v1/files?attorney_id=att&applicant_id=app", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := resp.Data.([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "cv.pdf", files[0].(map[string]any)["filename"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Checks = map[string]handler.Check{
			"mysql": func(context.Context) error { return nil },
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}
	})

	rec, _ := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, true, deps["mysql"].(map[string]any)["ok"])
	assert.Equal(t, "connection refused", deps["redis"].(map[string]any)["message"])
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.RateLimitRPS, d.RateLimitBurst = 0.001, 1 })

	rec, _ := f.do(t, http.MethodGet, "/api/v1/files?attorney_id=att&applicant_id=app", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp := f.do(t, http.MethodGet, "/api/v1/files?attorney_id=att&applicant_id=app", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, response.CodeTooManyRequests, resp.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is not rate limited")
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.AddChunksIndexed(2)
	f := newFixture(t, func(d *Deps) { d.Metrics = m.Handler() })

	rec, _ := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "applicant_rag_chunks_indexed_total 2")
}

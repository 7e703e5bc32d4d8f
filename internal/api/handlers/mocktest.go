package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/preplab/catprep/internal/api"
	"github.com/preplab/catprep/internal/domain"
)

type MockTestServiceInterface interface {
	Compose(ctx context.Context, size int) (*domain.MockTest, []*domain.Question, error)
	Submit(ctx context.Context, testID string, answers map[string]int) (*domain.ScoreReport, error)
	Get(ctx context.Context, testID string) (*domain.MockTest, error)
}

type MockTestHandler struct {
	svc         MockTestServiceInterface
	defaultSize int
}

func NewMockTestHandler(svc MockTestServiceInterface, defaultSize int) *MockTestHandler {
	return &MockTestHandler{svc: svc, defaultSize: defaultSize}
}

type ComposeTestRequest struct {
	Size int `json:"size"`
}

type MockTestResponse struct {
	ID          string              `json:"id"`
	Questions   []*QuestionResponse `json:"questions,omitempty"`
	QuestionIDs []string            `json:"question_ids"`
	StartedAt   string              `json:"started_at"`
	SubmittedAt string              `json:"submitted_at,omitempty"`
	Report      *ScoreReportResponse `json:"report,omitempty"`
}

type TopicScoreResponse struct {
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Percent float64 `json:"percent"`
}

type ScoreReportResponse struct {
	Total    int                           `json:"total"`
	Correct  int                           `json:"correct"`
	Percent  float64                       `json:"percent"`
	PerTopic map[string]TopicScoreResponse `json:"per_topic"`
}

func reportToResponse(r *domain.ScoreReport) *ScoreReportResponse {
	if r == nil {
		return nil
	}
	perTopic := make(map[string]TopicScoreResponse, len(r.PerTopic))
	for topic, score := range r.PerTopic {
		perTopic[topic] = TopicScoreResponse{
			Total:   score.Total,
			Correct: score.Correct,
			Percent: score.Percent,
		}
	}
	return &ScoreReportResponse{
		Total:    r.Total,
		Correct:  r.Correct,
		Percent:  r.Percent,
		PerTopic: perTopic,
	}
}

func mockTestToResponse(t *domain.MockTest, questions []*domain.Question) *MockTestResponse {
	resp := &MockTestResponse{
		ID:          t.ID,
		QuestionIDs: t.QuestionIDs,
		StartedAt:   t.StartedAt.Format(time.RFC3339),
		Report:      reportToResponse(t.Report),
	}
	if t.SubmittedAt != nil {
		resp.SubmittedAt = t.SubmittedAt.Format(time.RFC3339)
	}
	if len(questions) > 0 {
		resp.Questions = make([]*QuestionResponse, len(questions))
		for i, q := range questions {
			resp.Questions[i] = questionToResponse(q)
		}
	}
	return resp
}

func (h *MockTestHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req ComposeTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	size := req.Size
	if size == 0 {
		size = h.defaultSize
	}
	if size < 0 {
		api.Error(w, http.StatusBadRequest, "size must be positive")
		return
	}

	test, questions, err := h.svc.Compose(r.Context(), size)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, mockTestToResponse(test, questions))
}

type SubmitTestRequest struct {
	Answers map[string]int `json:"answers"`
}

func (h *MockTestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SubmitTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Answers == nil {
		api.Error(w, http.StatusBadRequest, "answers is required")
		return
	}

	report, err := h.svc.Submit(r.Context(), id, req.Answers)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, reportToResponse(report))
}

func (h *MockTestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	test, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, mockTestToResponse(test, nil))
}

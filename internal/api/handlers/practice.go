package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/preplab/catprep/internal/api"
	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/service"
)

type PracticeServiceInterface interface {
	StartSession(ctx context.Context) (*service.Session, error)
	NextQuestion(ctx context.Context, sessionID string) (*domain.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID string, answerIndex, seconds int) (*service.AnswerResult, error)
}

type PracticeHandler struct {
	svc PracticeServiceInterface
}

func NewPracticeHandler(svc PracticeServiceInterface) *PracticeHandler {
	return &PracticeHandler{svc: svc}
}

type SessionResponse struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
}

// QuestionResponse deliberately omits the correct index and explanation;
// those are only revealed after an answer is submitted.
type QuestionResponse struct {
	ID               string   `json:"id"`
	Topic            string   `json:"topic"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	Difficulty       int      `json:"difficulty"`
	EstimatedSeconds int      `json:"estimated_seconds"`
}

func questionToResponse(q *domain.Question) *QuestionResponse {
	return &QuestionResponse{
		ID:               q.ID,
		Topic:            q.Topic,
		Text:             q.Text,
		Options:          q.Options,
		Difficulty:       q.Difficulty,
		EstimatedSeconds: q.EstimatedSeconds,
	}
}

func (h *PracticeHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.StartSession(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, SessionResponse{
		ID:        session.ID,
		StartedAt: session.StartedAt.Format(time.RFC3339),
	})
}

func (h *PracticeHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	question, err := h.svc.NextQuestion(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, questionToResponse(question))
}

type SubmitAnswerRequest struct {
	QuestionID  string `json:"question_id"`
	AnswerIndex *int   `json:"answer_index"`
	Seconds     int    `json:"seconds"`
}

type TopicStatsResponse struct {
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

type AnswerResultResponse struct {
	Correct      bool                          `json:"correct"`
	CorrectIndex int                           `json:"correct_index"`
	Explanation  string                        `json:"explanation,omitempty"`
	Overall      float64                       `json:"overall"`
	Topics       map[string]TopicStatsResponse `json:"topics"`
}

func skillTopicsToResponse(topics map[string]domain.TopicStats) map[string]TopicStatsResponse {
	out := make(map[string]TopicStatsResponse, len(topics))
	for topic, stats := range topics {
		out[topic] = TopicStatsResponse{
			Attempts: stats.Attempts,
			Correct:  stats.Correct,
			Accuracy: stats.Accuracy,
		}
	}
	return out
}

func (h *PracticeHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QuestionID == "" {
		api.Error(w, http.StatusBadRequest, "question_id is required")
		return
	}
	if req.AnswerIndex == nil {
		api.Error(w, http.StatusBadRequest, "answer_index is required")
		return
	}

	result, err := h.svc.SubmitAnswer(r.Context(), sessionID, req.QuestionID, *req.AnswerIndex, req.Seconds)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnswerResultResponse{
		Correct:      result.Correct,
		CorrectIndex: result.CorrectIndex,
		Explanation:  result.Explanation,
		Overall:      result.State.Overall,
		Topics:       skillTopicsToResponse(result.State.Topics),
	})
}

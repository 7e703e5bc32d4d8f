package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/preplab/catprep/internal/api"
	"github.com/preplab/catprep/internal/domain"
)

type RetrieverService interface {
	Retrieve(ctx context.Context, query string, topK int) ([]*domain.ScoredChunk, error)
}

type AnswerGenerator interface {
	Answer(ctx context.Context, query string, chunks []*domain.ScoredChunk) (*domain.Answer, error)
}

type AskHandler struct {
	retriever RetrieverService
	answers   AnswerGenerator
}

func NewAskHandler(retriever RetrieverService, answers AnswerGenerator) *AskHandler {
	return &AskHandler{retriever: retriever, answers: answers}
}

type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type CitationResponse struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"`
}

type AskResponse struct {
	Answer    string             `json:"answer"`
	Refusal   bool               `json:"refusal"`
	Citations []CitationResponse `json:"citations"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	chunks, err := h.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	answer, err := h.answers.Answer(r.Context(), req.Query, chunks)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	citations := make([]CitationResponse, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = CitationResponse{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
		}
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:    answer.Text,
		Refusal:   answer.Refusal,
		Citations: citations,
	})
}

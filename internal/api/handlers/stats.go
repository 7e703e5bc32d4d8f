package handlers

import (
	"context"
	"net/http"

	"github.com/preplab/catprep/internal/api"
	"github.com/preplab/catprep/internal/service"
)

type StatsServiceInterface interface {
	Summary(ctx context.Context) (*service.Stats, error)
}

type StatsHandler struct {
	svc StatsServiceInterface
}

func NewStatsHandler(svc StatsServiceInterface) *StatsHandler {
	return &StatsHandler{svc: svc}
}

type StatsResponse struct {
	TotalAttempts   int                           `json:"total_attempts"`
	CorrectAttempts int                           `json:"correct_attempts"`
	Overall         float64                       `json:"overall"`
	Topics          map[string]TopicStatsResponse `json:"topics"`
	WeakestTopics   []string                      `json:"weakest_topics"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Summary(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		TotalAttempts:   stats.TotalAttempts,
		CorrectAttempts: stats.CorrectAttempts,
		Overall:         stats.Overall,
		Topics:          skillTopicsToResponse(stats.Topics),
		WeakestTopics:   stats.WeakestTopics,
	})
}

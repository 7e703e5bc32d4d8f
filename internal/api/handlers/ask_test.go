package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/preplab/catprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetrieverService struct {
	mock.Mock
}

func (m *MockRetrieverService) Retrieve(ctx context.Context, query string, topK int) ([]*domain.ScoredChunk, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScoredChunk), args.Error(1)
}

type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) Answer(ctx context.Context, query string, chunks []*domain.ScoredChunk) (*domain.Answer, error) {
	args := m.Called(ctx, query, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func scoredChunks() []*domain.ScoredChunk {
	return []*domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c-1", DocumentID: "doc-1", Seq: 0, Content: "percentages"}, Score: 0.91},
		{Chunk: domain.Chunk{ID: "c-2", DocumentID: "doc-1", Seq: 3, Content: "ratios"}, Score: 0.84},
	}
}

func TestAskHandler_Ask_Success(t *testing.T) {
	mockRetriever := new(MockRetrieverService)
	mockAnswers := new(MockAnswerGenerator)
	handler := NewAskHandler(mockRetriever, mockAnswers)

	chunks := scoredChunks()
	mockRetriever.On("Retrieve", mock.Anything, "what is a percentage?", 3).Return(chunks, nil)
	mockAnswers.On("Answer", mock.Anything, "what is a percentage?", chunks).Return(&domain.Answer{
		Text:      "A percentage is a ratio out of one hundred. [1]",
		Citations: []domain.Citation{{ChunkID: "c-1", DocumentID: "doc-1", Seq: 0}},
	}, nil)

	body := `{"query":"what is a percentage?","top_k":3}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "A percentage is a ratio out of one hundred. [1]", data["answer"])
	assert.Equal(t, false, data["refusal"])
	citations := data["citations"].([]interface{})
	require.Len(t, citations, 1)
	citation := citations[0].(map[string]interface{})
	assert.Equal(t, "c-1", citation["chunk_id"])
	mockRetriever.AssertExpectations(t)
	mockAnswers.AssertExpectations(t)
}

func TestAskHandler_Ask_Refusal(t *testing.T) {
	mockRetriever := new(MockRetrieverService)
	mockAnswers := new(MockAnswerGenerator)
	handler := NewAskHandler(mockRetriever, mockAnswers)

	mockRetriever.On("Retrieve", mock.Anything, "unrelated question", 0).Return([]*domain.ScoredChunk{}, nil)
	mockAnswers.On("Answer", mock.Anything, "unrelated question", mock.Anything).Return(&domain.Answer{
		Text:    "I don't know.",
		Refusal: true,
	}, nil)

	body := `{"query":"unrelated question"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["refusal"])
	assert.Empty(t, data["citations"])
}

func TestAskHandler_Ask_BlankQuery(t *testing.T) {
	handler := NewAskHandler(new(MockRetrieverService), new(MockAnswerGenerator))

	body := `{"query":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query is required")
}

func TestAskHandler_Ask_InvalidJSON(t *testing.T) {
	handler := NewAskHandler(new(MockRetrieverService), new(MockAnswerGenerator))

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskHandler_Ask_RetrievalUnavailable(t *testing.T) {
	mockRetriever := new(MockRetrieverService)
	handler := NewAskHandler(mockRetriever, new(MockAnswerGenerator))

	mockRetriever.On("Retrieve", mock.Anything, "q", 0).Return(nil, domain.ErrRetrievalUnavailable)

	body := `{"query":"q"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	mockRetriever.AssertExpectations(t)
}

func TestAskHandler_Ask_AnswerTimeout(t *testing.T) {
	mockRetriever := new(MockRetrieverService)
	mockAnswers := new(MockAnswerGenerator)
	handler := NewAskHandler(mockRetriever, mockAnswers)

	mockRetriever.On("Retrieve", mock.Anything, "q", 0).Return(scoredChunks(), nil)
	mockAnswers.On("Answer", mock.Anything, "q", mock.Anything).Return(nil, domain.ErrServiceTimeout)

	body := `{"query":"q"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

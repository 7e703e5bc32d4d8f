package service

import (
	"context"
	"sync"
	"time"

	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/telemetry"
)

// PracticeQuestionRepository supplies the question bank for practice sessions.
type PracticeQuestionRepository interface {
	ListAll(ctx context.Context) ([]*domain.Question, error)
	GetByID(ctx context.Context, id string) (*domain.Question, error)
}

// AnswerResult is the immediate feedback for one practice answer.
type AnswerResult struct {
	Correct      bool
	CorrectIndex int
	Explanation  string
	State        domain.SkillState
}

// PracticeService owns practice sessions and serves adaptively selected
// questions from the bank. Sessions live in memory; restarting the process
// ends them, which is acceptable because the skill state they feed is
// persisted per attempt.
type PracticeService struct {
	questions PracticeQuestionRepository
	skills    SkillStateRepository
	tracker   *Tracker
	selector  *AdaptiveSelector
	uuidGen   UUIDGenerator
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewPracticeService(questions PracticeQuestionRepository, skills SkillStateRepository, tracker *Tracker, selector *AdaptiveSelector) *PracticeService {
	return &PracticeService{
		questions: questions,
		skills:    skills,
		tracker:   tracker,
		selector:  selector,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]*Session),
	}
}

// StartSession opens a new practice session.
func (s *PracticeService) StartSession(ctx context.Context) (*Session, error) {
	_, span := telemetry.StartSpan(ctx, "PracticeService.StartSession", telemetry.SpanAttributes{Operation: "start_session"})
	defer span.End()

	session := NewSession(s.uuidGen.NewString(), s.now())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// NextQuestion serves the next adaptively selected question for the session.
// Questions already served this session are never repeated; once the bank is
// exhausted the call fails with a state error.
func (s *PracticeService) NextQuestion(ctx context.Context, sessionID string) (*domain.Question, error) {
	ctx, span := telemetry.StartSpan(ctx, "PracticeService.NextQuestion", telemetry.SpanAttributes{Operation: "next_question"})
	defer span.End()

	session, err := s.session(sessionID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	state, err := s.skills.Get(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	pool, err := s.questions.ListAll(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// Selection mutates the session's served set; serialize with the
	// session map mutex so concurrent requests cannot double-serve.
	s.mu.Lock()
	defer s.mu.Unlock()

	question, err := s.selector.SelectNext(state, session, pool)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return question, nil
}

// SubmitAnswer records the learner's answer, updates the skill state, and
// returns immediate feedback including the correct option.
func (s *PracticeService) SubmitAnswer(ctx context.Context, sessionID, questionID string, answerIndex, seconds int) (*AnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PracticeService.SubmitAnswer", telemetry.SpanAttributes{QuestionID: questionID, Operation: "submit_answer"})
	defer span.End()

	if _, err := s.session(sessionID); err != nil {
		span.SetError(err)
		return nil, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	attempt, err := domain.NewAttempt(s.uuidGen.NewString(), question, answerIndex, seconds, s.now())
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	state, err := s.tracker.Record(ctx, question.Topic, attempt)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &AnswerResult{
		Correct:      attempt.Correct,
		CorrectIndex: question.CorrectIndex,
		Explanation:  question.Explanation,
		State:        state,
	}, nil
}

func (s *PracticeService) session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

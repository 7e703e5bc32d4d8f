package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/preplab/catprep/internal/domain"
)

// MinMockTestPool is the smallest pool a test can be composed from.
const MinMockTestPool = 5

// QuestionPoolRepository supplies the question bank.
type QuestionPoolRepository interface {
	ListAll(ctx context.Context) ([]*domain.Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Question, error)
}

// MockTestRepository persists composed tests.
type MockTestRepository interface {
	Create(ctx context.Context, test *domain.MockTest) error
	GetByID(ctx context.Context, id string) (*domain.MockTest, error)
	Update(ctx context.Context, test *domain.MockTest) error
}

// ComposeQuestions samples a topic-balanced, difficulty-spread question set.
// Slots are allocated proportionally to topic representation with remainders
// going to the largest-remainder topics first; within a topic the picks are
// spread across the sorted difficulty range instead of clustering.
// Composition is deterministic for a given pool, so a test bank can be
// reproduced.
func ComposeQuestions(pool []*domain.Question, size int) ([]*domain.Question, error) {
	if size <= 0 {
		return nil, fmt.Errorf("test size must be positive, got %d", size)
	}
	candidates := make([]*domain.Question, 0, len(pool))
	for _, q := range pool {
		if q != nil {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) < MinMockTestPool || len(candidates) < size {
		return nil, domain.ErrInsufficientQuestions
	}

	byTopic := make(map[string][]*domain.Question)
	for _, q := range candidates {
		byTopic[q.Topic] = append(byTopic[q.Topic], q)
	}

	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	type allocation struct {
		topic     string
		count     int
		remainder float64
	}

	allocations := make([]allocation, 0, len(topics))
	assigned := 0
	for _, topic := range topics {
		exact := float64(size) * float64(len(byTopic[topic])) / float64(len(candidates))
		base := int(exact)
		allocations = append(allocations, allocation{
			topic:     topic,
			count:     base,
			remainder: exact - float64(base),
		})
		assigned += base
	}

	// Hand leftover slots to the largest remainders first.
	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].remainder > allocations[j].remainder
	})
	for i := 0; assigned < size; i = (i + 1) % len(allocations) {
		a := &allocations[i]
		if a.count < len(byTopic[a.topic]) {
			a.count++
			assigned++
		}
	}

	selected := make([]*domain.Question, 0, size)
	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].topic < allocations[j].topic
	})
	for _, a := range allocations {
		if a.count == 0 {
			continue
		}
		selected = append(selected, spreadByDifficulty(byTopic[a.topic], a.count)...)
	}

	return selected, nil
}

// spreadByDifficulty picks k questions spanning the topic's difficulty range.
func spreadByDifficulty(questions []*domain.Question, k int) []*domain.Question {
	if k >= len(questions) {
		picked := make([]*domain.Question, len(questions))
		copy(picked, questions)
		sortByDifficulty(picked)
		return picked
	}

	ordered := make([]*domain.Question, len(questions))
	copy(ordered, questions)
	sortByDifficulty(ordered)

	picked := make([]*domain.Question, 0, k)
	for i := 0; i < k; i++ {
		picked = append(picked, ordered[i*len(ordered)/k])
	}
	return picked
}

func sortByDifficulty(questions []*domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Difficulty != questions[j].Difficulty {
			return questions[i].Difficulty < questions[j].Difficulty
		}
		return questions[i].ID < questions[j].ID
	})
}

// ScoreTest computes the per-topic breakdown and overall percentage for a set
// of answers. Unanswered questions count as incorrect.
func ScoreTest(questions []*domain.Question, answers map[string]int) *domain.ScoreReport {
	report := &domain.ScoreReport{
		Total:    len(questions),
		PerTopic: make(map[string]domain.TopicScore),
	}

	for _, q := range questions {
		score := report.PerTopic[q.Topic]
		score.Total++

		if answer, ok := answers[q.ID]; ok && answer == q.CorrectIndex {
			score.Correct++
			report.Correct++
		}

		score.Percent = 100 * float64(score.Correct) / float64(score.Total)
		report.PerTopic[q.Topic] = score
	}

	if report.Total > 0 {
		report.Percent = 100 * float64(report.Correct) / float64(report.Total)
	}
	return report
}

// MockTestService composes, stores, and scores timed assessments.
type MockTestService struct {
	questions QuestionPoolRepository
	tests     MockTestRepository
	tracker   *Tracker
	now       func() time.Time
}

func NewMockTestService(questions QuestionPoolRepository, tests MockTestRepository, tracker *Tracker) *MockTestService {
	return &MockTestService{
		questions: questions,
		tests:     tests,
		tracker:   tracker,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Compose samples a new mock test from the question bank and stores it.
func (s *MockTestService) Compose(ctx context.Context, size int) (*domain.MockTest, []*domain.Question, error) {
	pool, err := s.questions.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	selected, err := ComposeQuestions(pool, size)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, len(selected))
	for i, q := range selected {
		ids[i] = q.ID
	}

	test := domain.NewMockTest(uuid.NewString(), ids, s.now())
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, nil, err
	}

	return test, selected, nil
}

// Get returns a stored mock test by id.
func (s *MockTestService) Get(ctx context.Context, testID string) (*domain.MockTest, error) {
	return s.tests.GetByID(ctx, testID)
}

// Submit finalizes the test with the learner's answers and returns the score
// report. Each answer is also recorded as an attempt so the skill state
// reflects mock tests. A second submission fails with a state error.
func (s *MockTestService) Submit(ctx context.Context, testID string, answers map[string]int) (*domain.ScoreReport, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Submitted() {
		return nil, domain.ErrTestAlreadySubmitted
	}

	questions, err := s.questions.GetByIDs(ctx, test.QuestionIDs)
	if err != nil {
		return nil, err
	}

	report := ScoreTest(questions, answers)
	if err := test.Finalize(answers, report, s.now()); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, err
	}

	if s.tracker != nil {
		for _, q := range questions {
			answer, ok := answers[q.ID]
			if !ok {
				continue
			}
			attempt, err := domain.NewAttempt(uuid.NewString(), q, answer, 0, s.now())
			if err != nil {
				continue
			}
			attempt.TestID = test.ID
			if _, err := s.tracker.Record(ctx, q.Topic, attempt); err != nil {
				return nil, err
			}
		}
	}

	return report, nil
}

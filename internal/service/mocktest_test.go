package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/preplab/catprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPool(perTopic map[string]int) []*domain.Question {
	pool := []*domain.Question{}
	for topic, count := range perTopic {
		for i := 0; i < count; i++ {
			pool = append(pool, &domain.Question{
				ID:           fmt.Sprintf("%s-%d", topic, i),
				Topic:        topic,
				Text:         "question",
				Options:      []string{"a", "b", "c", "d"},
				CorrectIndex: 1,
				Difficulty:   1 + i%5,
			})
		}
	}
	return pool
}

func TestComposeQuestions_ProportionalAllocation(t *testing.T) {
	pool := buildPool(map[string]int{
		"Arithmetic": 5, "Algebra": 5, "Geometry": 5, "Vocabulary": 5,
	})

	selected, err := ComposeQuestions(pool, 10)
	require.NoError(t, err)
	require.Len(t, selected, 10)

	perTopic := map[string]int{}
	seen := map[string]bool{}
	for _, q := range selected {
		assert.False(t, seen[q.ID], "question %s selected twice", q.ID)
		seen[q.ID] = true
		perTopic[q.Topic]++
	}

	// 4 topics x 5 questions, size 10: proportional share is 2.5, so each
	// topic gets 2 or 3 and never more than its availability
	for topic, n := range perTopic {
		assert.GreaterOrEqual(t, n, 2, topic)
		assert.LessOrEqual(t, n, 3, topic)
	}
	assert.Len(t, perTopic, 4)
}

func TestComposeQuestions_SkewedPool(t *testing.T) {
	pool := buildPool(map[string]int{"Algebra": 12, "Geometry": 4})

	selected, err := ComposeQuestions(pool, 8)
	require.NoError(t, err)

	perTopic := map[string]int{}
	for _, q := range selected {
		perTopic[q.Topic]++
	}
	// 12:4 split of 8 slots = 6:2
	assert.Equal(t, 6, perTopic["Algebra"])
	assert.Equal(t, 2, perTopic["Geometry"])
}

func TestComposeQuestions_DifficultySpread(t *testing.T) {
	pool := buildPool(map[string]int{"Algebra": 10})

	selected, err := ComposeQuestions(pool, 5)
	require.NoError(t, err)

	difficulties := map[int]bool{}
	for _, q := range selected {
		difficulties[q.Difficulty] = true
	}
	// two questions per difficulty level in the pool; an even spread covers
	// more than one level
	assert.Greater(t, len(difficulties), 1)
}

func TestComposeQuestions_InsufficientPool(t *testing.T) {
	small := buildPool(map[string]int{"Algebra": 4})

	_, err := ComposeQuestions(small, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuestions)

	pool := buildPool(map[string]int{"Algebra": 8})
	_, err = ComposeQuestions(pool, 9)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuestions)

	_, err = ComposeQuestions(pool, 0)
	assert.Error(t, err)
}

func TestComposeQuestions_NilEntriesDoNotCountTowardAvailability(t *testing.T) {
	// Nil entries must not inflate the pool size: 4 real questions padded
	// with nils cannot satisfy a size-5 test.
	pool := buildPool(map[string]int{"Algebra": 4})
	pool = append(pool, nil, nil, nil)

	done := make(chan struct{})
	var selected []*domain.Question
	var err error
	go func() {
		selected, err = ComposeQuestions(pool, 5)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("composition did not terminate on a nil-padded pool")
	}
	assert.ErrorIs(t, err, domain.ErrInsufficientQuestions)
	assert.Nil(t, selected)
}

func TestComposeQuestions_SkipsNilEntries(t *testing.T) {
	pool := buildPool(map[string]int{"Algebra": 6})
	pool = append([]*domain.Question{nil}, pool...)
	pool = append(pool, nil)

	selected, err := ComposeQuestions(pool, 5)
	require.NoError(t, err)
	require.Len(t, selected, 5)
	for _, q := range selected {
		require.NotNil(t, q)
	}
}

func TestComposeQuestions_Deterministic(t *testing.T) {
	pool := buildPool(map[string]int{"Arithmetic": 7, "Geometry": 9})

	first, err := ComposeQuestions(pool, 10)
	require.NoError(t, err)
	second, err := ComposeQuestions(pool, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScoreTest_PerTopicBreakdown(t *testing.T) {
	questions := []*domain.Question{
		{ID: "q-1", Topic: "Algebra", Options: []string{"a", "b"}, CorrectIndex: 0},
		{ID: "q-2", Topic: "Algebra", Options: []string{"a", "b"}, CorrectIndex: 1},
		{ID: "q-3", Topic: "Geometry", Options: []string{"a", "b"}, CorrectIndex: 0},
		{ID: "q-4", Topic: "Geometry", Options: []string{"a", "b"}, CorrectIndex: 1},
	}
	answers := map[string]int{
		"q-1": 0, // correct
		"q-2": 0, // wrong
		"q-3": 0, // correct
		// q-4 unanswered -> incorrect
	}

	report := ScoreTest(questions, answers)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Correct)
	assert.Equal(t, 50.0, report.Percent)
	assert.Equal(t, 50.0, report.PerTopic["Algebra"].Percent)
	assert.Equal(t, 50.0, report.PerTopic["Geometry"].Percent)
}

type memTestRepo struct {
	tests map[string]*domain.MockTest
}

func newMemTestRepo() *memTestRepo {
	return &memTestRepo{tests: make(map[string]*domain.MockTest)}
}

func (r *memTestRepo) Create(ctx context.Context, test *domain.MockTest) error {
	r.tests[test.ID] = test
	return nil
}

func (r *memTestRepo) GetByID(ctx context.Context, id string) (*domain.MockTest, error) {
	test, ok := r.tests[id]
	if !ok {
		return nil, domain.ErrTestNotFound
	}
	return test, nil
}

func (r *memTestRepo) Update(ctx context.Context, test *domain.MockTest) error {
	r.tests[test.ID] = test
	return nil
}

type memPoolRepo struct {
	pool []*domain.Question
}

func (r *memPoolRepo) ListAll(ctx context.Context) ([]*domain.Question, error) {
	return r.pool, nil
}

func (r *memPoolRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Question, error) {
	byID := map[string]*domain.Question{}
	for _, q := range r.pool {
		byID[q.ID] = q
	}
	out := make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func TestMockTestService_SubmitTwiceFails(t *testing.T) {
	pool := buildPool(map[string]int{"Arithmetic": 5, "Algebra": 5})
	svc := NewMockTestService(
		&memPoolRepo{pool: pool},
		newMemTestRepo(),
		NewTracker(&memAttemptRepo{}, &memSkillRepo{state: domain.NewSkillState()}),
	)

	test, questions, err := svc.Compose(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, questions, 6)

	answers := map[string]int{}
	for _, q := range questions {
		answers[q.ID] = q.CorrectIndex
	}

	report, err := svc.Submit(context.Background(), test.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.Percent)

	_, err = svc.Submit(context.Background(), test.ID, answers)
	assert.ErrorIs(t, err, domain.ErrTestAlreadySubmitted)
}

func TestMockTestService_SubmitUpdatesSkillState(t *testing.T) {
	pool := buildPool(map[string]int{"Arithmetic": 6})
	skills := &memSkillRepo{state: domain.NewSkillState()}
	svc := NewMockTestService(
		&memPoolRepo{pool: pool},
		newMemTestRepo(),
		NewTracker(&memAttemptRepo{}, skills),
	)
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	test, questions, err := svc.Compose(context.Background(), 5)
	require.NoError(t, err)

	answers := map[string]int{}
	for i, q := range questions {
		if i < 3 {
			answers[q.ID] = q.CorrectIndex
		} else {
			answers[q.ID] = (q.CorrectIndex + 1) % len(q.Options)
		}
	}

	_, err = svc.Submit(context.Background(), test.ID, answers)
	require.NoError(t, err)

	state, err := skills.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, state.Topics["Arithmetic"].Attempts)
	assert.InDelta(t, 0.6, state.Topics["Arithmetic"].Accuracy, 1e-9)
}

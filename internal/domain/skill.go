package domain

// TopicStats holds rolling accuracy for a single topic.
type TopicStats struct {
	Attempts int
	Correct  int
	Accuracy float64
}

// SkillState is the single learner's profile: per-topic rolling stats and a
// scalar overall skill estimate in [0,1]. Callers own its persistence and
// lifecycle; it is passed explicitly, never held as a hidden singleton.
type SkillState struct {
	Topics  map[string]TopicStats
	Overall float64
}

// NewSkillState returns an empty profile with a neutral skill estimate.
func NewSkillState() SkillState {
	return SkillState{
		Topics:  make(map[string]TopicStats),
		Overall: 0.5,
	}
}

// Clone returns a deep copy so updates never alias a caller's map.
func (s SkillState) Clone() SkillState {
	topics := make(map[string]TopicStats, len(s.Topics))
	for topic, stats := range s.Topics {
		topics[topic] = stats
	}
	return SkillState{Topics: topics, Overall: s.Overall}
}

// TotalAttempts counts attempts across all topics.
func (s SkillState) TotalAttempts() int {
	total := 0
	for _, stats := range s.Topics {
		total += stats.Attempts
	}
	return total
}

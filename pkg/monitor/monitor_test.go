package monitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theapemachine/recall-go/pkg/patterns"
	"github.com/theapemachine/recall-go/pkg/perf"
)

var allTiers = patterns.Tiers{Instant: true, Fast: true, Intensive: true}

func TestTopicShiftBetweenMessages(t *testing.T) {
	m := New(10)

	first := m.Analyze("Working on React components and state management", nil, patterns.Tiers{Instant: true, Fast: true})
	second := m.Analyze("Let's switch to database schema design", nil, patterns.Tiers{Instant: true, Fast: true})

	assert.Greater(t, second.SemanticShift, first.SemanticShift)
}

func TestKeyPhraseExtraction(t *testing.T) {
	m := New(10)

	analysis := m.Analyze("the database migration broke the schema validation", nil, patterns.Tiers{Instant: true, Fast: true})

	assert.ElementsMatch(t, []string{"database", "migration", "schema", "validation"}, analysis.KeyPhrases)
}

func TestTriggerProbabilityAccumulation(t *testing.T) {
	m := New(10)
	m.Analyze("react components", nil, patterns.Tiers{Instant: true, Fast: true})

	// Question opening (+0.3), past-work phrasing (+0.4), three key phrases
	// (+0.2) and a full topic shift (+0.3), clipped to 1.
	analysis := m.Analyze(
		"what did we do earlier about the database schema migration?",
		nil,
		patterns.Tiers{Instant: true, Fast: true},
	)

	assert.Equal(t, 1.0, analysis.TriggerProbability)
	assert.True(t, analysis.IsQuestion)
	assert.True(t, analysis.PastWorkReference)
}

func TestInstantTierCacheHit(t *testing.T) {
	m := New(10)

	m.Analyze("checking the api endpoint", nil, patterns.Tiers{Instant: true, Fast: true})
	cached := m.Analyze("checking the api endpoint", nil, patterns.Tiers{Instant: true, Fast: true})

	assert.Equal(t, perf.TierInstant, cached.Tier)
	assert.Equal(t, 0.8, cached.Confidence)
}

func TestInstantTierMissConfidence(t *testing.T) {
	m := New(10)

	analysis := m.Analyze("remind me about the docker setup", nil, patterns.Tiers{Instant: true})

	assert.Equal(t, 0.4, analysis.Confidence)
	assert.GreaterOrEqual(t, analysis.TriggerProbability, 0.7)
	assert.Contains(t, analysis.Topics, "docker")
}

func TestHistoryTrimmedToTwiceWindow(t *testing.T) {
	m := New(5)

	for i := 0; i < 30; i++ {
		m.Analyze(fmt.Sprintf("message %d about the api", i), nil, patterns.Tiers{Instant: true, Fast: true})
	}

	assert.Equal(t, 10, m.HistoryLen())
}

func TestIntensiveBlendsRecurringTopics(t *testing.T) {
	m := New(10)

	m.Analyze("the cache layer needs work", nil, allTiers)
	m.Analyze("cache invalidation is hard", nil, allTiers)
	analysis := m.Analyze("now let's look at the frontend routing", nil, allTiers)

	// "cache" appeared more than once in recent history and is carried over.
	assert.Contains(t, analysis.Topics, "cache")
	assert.Contains(t, analysis.Topics, "frontend")
}

func TestIntensiveProjectRelevance(t *testing.T) {
	m := New(10)
	m.Analyze("thinking about deployment", nil, allTiers)

	without := m.Analyze("the pipeline for acme needs a docker deployment change", nil, allTiers)

	m2 := New(10)
	m2.Analyze("thinking about deployment", nil, allTiers)
	with := m2.Analyze("the pipeline for acme needs a docker deployment change", []string{"acme"}, allTiers)

	assert.Greater(t, with.TriggerProbability, without.TriggerProbability)
}

func TestFirstMessageNoShift(t *testing.T) {
	m := New(10)

	analysis := m.Analyze("react state management", nil, patterns.Tiers{Instant: true, Fast: true})

	assert.Equal(t, 0.0, analysis.SemanticShift)
}

package patterns

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/perf"
)

func newTestDetector() *Detector {
	return NewDetector(config.PatternDetector{
		Sensitivity:      0.7,
		AdaptiveLearning: true,
	})
}

func TestExplicitMemoryRequest(t *testing.T) {
	d := newTestDetector()

	detection := d.Detect(
		"What did we decide about the authentication approach?",
		nil,
		Tiers{Instant: true},
	)

	require.NotEmpty(t, detection.Matches)

	var explicit *Match
	for i := range detection.Matches {
		if detection.Matches[i].Category == CategoryExplicitMemoryRequest {
			explicit = &detection.Matches[i]
		}
	}

	require.NotNil(t, explicit, "expected an explicit memory request match")
	assert.GreaterOrEqual(t, explicit.Confidence, 0.9)
	assert.True(t, detection.TriggerRecommendation)
}

func TestNoMatchNoTrigger(t *testing.T) {
	d := newTestDetector()

	detection := d.Detect("the weather is nice today", nil, Tiers{Instant: true, Fast: true})

	assert.Empty(t, detection.Matches)
	assert.False(t, detection.TriggerRecommendation)
	assert.Equal(t, 0.0, detection.Confidence)
}

func TestFastTierContextBoost(t *testing.T) {
	d := newTestDetector()

	plain := d.Detect("we should review the database schema", nil, Tiers{Instant: true, Fast: true})
	d2 := newTestDetector()
	boosted := d2.Detect(
		"we should review the database schema",
		map[string]string{"data": "true"},
		Tiers{Instant: true, Fast: true},
	)

	require.NotEmpty(t, plain.Matches)
	require.NotEmpty(t, boosted.Matches)
	assert.InDelta(t, plain.Matches[0].Confidence+contextBoost, boosted.Matches[0].Confidence, 1e-9)
}

func TestFastTierSkippedWhenDisabled(t *testing.T) {
	d := newTestDetector()

	detection := d.Detect("we should review the database schema", nil, Tiers{Instant: true})

	for _, m := range detection.Matches {
		assert.NotEqual(t, perf.TierFast, m.Tier)
		assert.NotEqual(t, perf.TierIntensive, m.Tier)
	}
}

func TestIntensiveOnlyAfterUndecidedFastTier(t *testing.T) {
	d := newTestDetector()

	// A fast-tier match below 0.7 plus phrase-bag coverage.
	detection := d.Detect(
		"what is the current state of the project and the progress so far with this approach",
		nil,
		Tiers{Instant: true, Fast: true, Intensive: true},
	)

	sawIntensive := false
	for _, m := range detection.Matches {
		if m.Tier == perf.TierIntensive {
			sawIntensive = true
		}
	}
	assert.True(t, sawIntensive, "expected intensive tier to run")

	// Without a fast-tier match the intensive tier stays off.
	d2 := newTestDetector()
	detection2 := d2.Detect(
		"where were we with the progress so far",
		nil,
		Tiers{Instant: true, Fast: true, Intensive: true},
	)
	for _, m := range detection2.Matches {
		assert.NotEqual(t, perf.TierIntensive, m.Tier)
	}
}

func TestCacheBounded(t *testing.T) {
	d := newTestDetector()

	for i := 0; i < 130; i++ {
		d.Detect(fmt.Sprintf("message number %d about nothing", i), nil, Tiers{Instant: true})
	}

	assert.LessOrEqual(t, d.CacheSize(), 100)
	assert.GreaterOrEqual(t, d.CacheSize(), 50)
}

func TestCacheHitReturnsSameDetection(t *testing.T) {
	d := newTestDetector()

	first := d.Detect("remind me about the deploy steps", nil, Tiers{Instant: true})
	second := d.Detect("remind me about the deploy steps", nil, Tiers{Instant: true})

	assert.Equal(t, first, second)
}

func TestFeedbackAdjustmentClipped(t *testing.T) {
	d := newTestDetector()

	for i := 0; i < 20; i++ {
		d.RecordFeedback(CategoryQuestionPattern, true)
	}
	assert.InDelta(t, maxAdjustment, d.adjustments[CategoryQuestionPattern], 1e-9)

	for i := 0; i < 40; i++ {
		d.RecordFeedback(CategoryQuestionPattern, false)
	}
	assert.InDelta(t, -maxAdjustment, d.adjustments[CategoryQuestionPattern], 1e-9)
}

func TestFeedbackDisabledWithoutAdaptiveLearning(t *testing.T) {
	d := NewDetector(config.PatternDetector{Sensitivity: 0.7})

	d.RecordFeedback(CategoryQuestionPattern, true)
	assert.Empty(t, d.adjustments)
}

func TestSensitivityScalesConfidence(t *testing.T) {
	strict := NewDetector(config.PatternDetector{Sensitivity: 0.35})
	loose := NewDetector(config.PatternDetector{Sensitivity: 0.7})

	msg := "why did the import fail"
	low := strict.Detect(msg, nil, Tiers{Instant: true})
	high := loose.Detect(msg, nil, Tiers{Instant: true})

	require.NotEmpty(t, low.Matches)
	require.NotEmpty(t, high.Matches)
	assert.Less(t, low.Confidence, high.Confidence)
}

package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/project"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	scorer := NewScorer(config.MemoryScoring{
		Weights: config.ScoringWeights{
			TimeDecay:        0.35,
			TagRelevance:     0.25,
			ContentRelevance: 0.2,
			ContentQuality:   0.1,
			RecencyBonus:     0.1,
		},
		TimeDecayRate: 0.05,
	})
	scorer.SetClock(func() time.Time { return testNow })
	return scorer
}

func testProject() *project.Context {
	return &project.Context{
		Name:       "recall",
		Language:   "go",
		Frameworks: []string{"cobra"},
	}
}

func memoryAgedDays(days float64) memclient.Memory {
	created := testNow.Add(-time.Duration(days * 24 * float64(time.Hour)))
	return memclient.Memory{
		ContentHash: "hash",
		Content:     "worked on the recall retrieval pipeline in go\n- tuned cobra commands",
		Tags:        []string{"recall", "go"},
		CreatedAt:   float64(created.UnixMilli()),
	}
}

func TestScoreMonotonicInRecency(t *testing.T) {
	scorer := newTestScorer()
	proj := testProject()

	fresh := memoryAgedDays(1)
	stale := memoryAgedDays(60)

	freshScore := scorer.Score(&fresh, proj, nil)
	staleScore := scorer.Score(&stale, proj, nil)

	assert.Greater(t, freshScore, staleScore)
}

func TestScoreClippedAndBrokenDown(t *testing.T) {
	scorer := newTestScorer()
	m := memoryAgedDays(0.5)

	score := scorer.Score(&m, testProject(), []string{"retrieval"})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Equal(t, score, m.RelevanceScore)

	for _, component := range []string{"timeDecay", "tagRelevance", "contentRelevance", "contentQuality", "recencyBonus"} {
		assert.Contains(t, m.ScoreBreakdown, component)
	}
	assert.Equal(t, recencyToday, m.ScoreBreakdown["recencyBonus"])
}

func TestRecencyBonusSteps(t *testing.T) {
	scorer := newTestScorer()

	cases := []struct {
		days float64
		want float64
	}{
		{0.5, recencyToday},
		{3, recencyThisWeek},
		{20, recencyThisMonth},
		{45, 0},
	}

	for _, c := range cases {
		m := memoryAgedDays(c.days)
		assert.Equal(t, c.want, scorer.recencyBonus(&m), "age %v days", c.days)
	}
}

func TestUndatedMemoryGetsNeutralDecay(t *testing.T) {
	scorer := newTestScorer()
	m := memclient.Memory{Content: "undated note about recall"}

	assert.Equal(t, undatedDecay, scorer.timeDecay(&m))
	assert.Equal(t, 0.0, scorer.recencyBonus(&m))
}

func TestScoreAllDropsZeroAndSorts(t *testing.T) {
	scorer := newTestScorer()
	proj := testProject()

	unrelated := memclient.Memory{
		ContentHash: "zero",
		Content:     "",
		CreatedAt:   0,
	}
	older := memoryAgedDays(25)
	newer := memoryAgedDays(2)
	newer.ContentHash = "newer"

	ranked := scorer.ScoreAll([]memclient.Memory{unrelated, older, newer}, proj, nil)

	require.Len(t, ranked, 2)
	assert.Equal(t, "newer", ranked[0].ContentHash)
	assert.True(t, ranked[0].RelevanceScore >= ranked[1].RelevanceScore)
}

func TestApplyGitBoost(t *testing.T) {
	memories := []memclient.Memory{
		{RelevanceScore: 0.5, GitContextWeight: 1.4},
		{RelevanceScore: 0.9, GitContextWeight: 1.4},
		{RelevanceScore: 0.5},
	}

	ApplyGitBoost(memories)

	assert.InDelta(t, 0.7, memories[0].RelevanceScore, 1e-9)
	assert.Equal(t, 0.5, memories[0].OriginalScore)
	assert.True(t, memories[0].WasBoosted)

	// Boost clips at 1.0.
	assert.Equal(t, 1.0, memories[1].RelevanceScore)

	// Unweighted memories are untouched.
	assert.False(t, memories[2].WasBoosted)
	assert.Equal(t, 0.5, memories[2].RelevanceScore)
}

func TestContentQualityShape(t *testing.T) {
	long := "## Decisions\n- chose sqlite\n- chose cobra\n"
	for len(long) < 150 {
		long += "more detail about the decision "
	}

	assert.Greater(t, contentQuality(long), contentQuality("short note"))
	assert.Equal(t, 0.0, contentQuality(""))
}

func TestAnalyzeAges(t *testing.T) {
	memories := []memclient.Memory{
		memoryAgedDays(2),
		memoryAgedDays(45),
		memoryAgedDays(90),
		{Content: "undated"},
	}

	report := AnalyzeAges(memories, testNow)

	assert.Equal(t, 3, report.Dated)
	assert.Equal(t, 1, report.Undated)
	assert.InDelta(t, 2.0/3.0, report.StaleRatio, 1e-9)
	assert.True(t, report.MostlyStale)
}

func TestCalibrateShiftsWeightsWhenStale(t *testing.T) {
	weights := config.ScoringWeights{TimeDecay: 0.35, TagRelevance: 0.25}

	shifted := Calibrate(weights, AgeReport{MostlyStale: true, StaleRatio: 0.8})
	assert.InDelta(t, 0.45, shifted.TimeDecay, 1e-9)
	assert.InDelta(t, 0.15, shifted.TagRelevance, 1e-9)

	// Repeated stale calibration is clipped at the interval bounds.
	shifted = Calibrate(shifted, AgeReport{MostlyStale: true})
	shifted = Calibrate(shifted, AgeReport{MostlyStale: true})
	assert.Equal(t, timeDecayCeil, shifted.TimeDecay)
	assert.Equal(t, tagRelevanceMin, shifted.TagRelevance)

	// Healthy corpus leaves the weights alone.
	assert.Equal(t, weights, Calibrate(weights, AgeReport{MostlyStale: false}))
}

func TestAdaptGitWeight(t *testing.T) {
	healthy := AdaptGitWeight(1.8, AgeReport{}, 10)
	assert.Equal(t, 1.8, healthy)

	stale := AdaptGitWeight(1.8, AgeReport{MostlyStale: true}, 10)
	assert.InDelta(t, 1.4, stale, 1e-9)

	quiet := AdaptGitWeight(1.8, AgeReport{}, 1)
	assert.InDelta(t, 1.56, quiet, 1e-9)

	both := AdaptGitWeight(1.8, AgeReport{MostlyStale: true}, 0)
	assert.InDelta(t, 1.28, both, 1e-9)
	assert.GreaterOrEqual(t, both, minBoostWeight)
}

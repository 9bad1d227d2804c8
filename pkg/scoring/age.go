package scoring

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/memclient"
)

const (
	stalenessDays = 30.0

	// Calibration is bounded-step so repeated retrievals cannot run the
	// weights off a cliff.
	calibrationStep = 0.1
	timeDecayCeil   = 0.5
	tagRelevanceMin = 0.1

	minBoostWeight = 1.0
)

/*
AgeReport summarizes the age distribution of a retrieved set. MostlyStale
flips when more than half the dated memories exceed the staleness
threshold.
*/
type AgeReport struct {
	Dated       int
	Undated     int
	AverageDays float64
	StaleRatio  float64
	MostlyStale bool
}

/*
AnalyzeAges classifies the retrieved set by age.
*/
func AnalyzeAges(memories []memclient.Memory, now time.Time) AgeReport {
	var report AgeReport
	var totalDays float64
	stale := 0

	for i := range memories {
		if memories[i].CreatedAt <= 0 {
			report.Undated++
			continue
		}

		days := (float64(now.UnixMilli()) - memories[i].CreatedAt) / dayMillis
		if days < 0 {
			days = 0
		}

		report.Dated++
		totalDays += days
		if days > stalenessDays {
			stale++
		}
	}

	if report.Dated > 0 {
		report.AverageDays = totalDays / float64(report.Dated)
		report.StaleRatio = float64(stale) / float64(report.Dated)
		report.MostlyStale = report.StaleRatio > 0.5
	}

	return report
}

/*
Calibrate shifts the scoring weights toward time decay when the retrieved
corpus is dominated by stale memories, so fresher entries are not buried
under tag affinity. The shift is a single bounded step; unchanged weights
are returned for a healthy corpus.
*/
func Calibrate(weights config.ScoringWeights, report AgeReport) config.ScoringWeights {
	if !report.MostlyStale {
		return weights
	}

	shifted := weights
	shifted.TimeDecay += calibrationStep
	if shifted.TimeDecay > timeDecayCeil {
		shifted.TimeDecay = timeDecayCeil
	}

	shifted.TagRelevance -= calibrationStep
	if shifted.TagRelevance < tagRelevanceMin {
		shifted.TagRelevance = tagRelevanceMin
	}

	log.Debug("scoring weights calibrated for stale corpus",
		"staleRatio", report.StaleRatio,
		"timeDecay", shifted.TimeDecay,
		"tagRelevance", shifted.TagRelevance,
	)

	return shifted
}

/*
AdaptGitWeight damps the configured git-context boost when the corpus is
stale or recent commit activity is low, so git-derived memories do not
drown out temporally relevant ones. The result never drops below neutral.
*/
func AdaptGitWeight(configured float64, report AgeReport, recentCommits int) float64 {
	weight := configured

	if report.MostlyStale {
		weight = minBoostWeight + (weight-minBoostWeight)*0.5
	}
	if recentCommits < 3 {
		weight = minBoostWeight + (weight-minBoostWeight)*0.7
	}

	if weight < minBoostWeight {
		weight = minBoostWeight
	}

	return weight
}

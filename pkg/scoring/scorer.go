/*
Package scoring ranks retrieved memories by multi-factor relevance. The
score is a weighted sum of time decay, tag relevance, content relevance,
content quality, and a recency bonus, clipped to [0,1]. A zero score means
the memory has no affinity with the current project and is dropped by the
caller.
*/
package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/project"
)

const (
	dayMillis = 24 * 60 * 60 * 1000

	// Recency bonus steps.
	recencyToday     = 1.0
	recencyThisWeek  = 0.7
	recencyThisMonth = 0.4

	// Undated memories get a neutral decay instead of scoring as ancient.
	undatedDecay = 0.5
)

var wordRe = regexp.MustCompile(`[a-zA-Z0-9_\-./]+`)

/*
Scorer computes relevance scores against a fixed project context. Build one
per retrieval event; the weights may have been shifted by auto-calibration
before construction.
*/
type Scorer struct {
	weights   config.ScoringWeights
	decayRate float64
	now       func() time.Time
}

func NewScorer(cfg config.MemoryScoring) *Scorer {
	decayRate := cfg.TimeDecayRate
	if decayRate <= 0 {
		decayRate = 0.05
	}

	return &Scorer{
		weights:   cfg.Weights,
		decayRate: decayRate,
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (s *Scorer) SetClock(now func() time.Time) { s.now = now }

/*
Score computes the relevance score for a single memory and annotates it
with the score and its per-component breakdown. The original memory fields
are never touched.
*/
func (s *Scorer) Score(m *memclient.Memory, proj *project.Context, messageTerms []string) float64 {
	decay := s.timeDecay(m)
	tags := tagRelevance(m.Tags, proj)
	content := contentRelevance(m.Content, proj, messageTerms)
	quality := contentQuality(m.Content)
	recency := s.recencyBonus(m)

	score := s.weights.TimeDecay*decay +
		s.weights.TagRelevance*tags +
		s.weights.ContentRelevance*content +
		s.weights.ContentQuality*quality +
		s.weights.RecencyBonus*recency

	// No tag or content affinity means the memory belongs to some other
	// project; freshness alone does not keep it.
	if tags == 0 && content == 0 {
		score = 0
	}

	score = clip01(score)

	m.RelevanceScore = score
	m.ScoreBreakdown = map[string]float64{
		"timeDecay":        decay,
		"tagRelevance":     tags,
		"contentRelevance": content,
		"contentQuality":   quality,
		"recencyBonus":     recency,
	}

	return score
}

/*
ScoreAll scores every memory, drops the zero-scored, and returns the
survivors ordered by descending relevance.
*/
func (s *Scorer) ScoreAll(memories []memclient.Memory, proj *project.Context, messageTerms []string) []memclient.Memory {
	out := make([]memclient.Memory, 0, len(memories))

	for i := range memories {
		if s.Score(&memories[i], proj, messageTerms) > 0 {
			out = append(out, memories[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})

	return out
}

/*
ApplyGitBoost multiplies the score of git-context memories by their
annotation weight, clipped to 1.0. The pre-boost score is preserved so the
output layer can show both.
*/
func ApplyGitBoost(memories []memclient.Memory) {
	for i := range memories {
		m := &memories[i]
		if m.GitContextWeight <= 1 {
			continue
		}

		m.OriginalScore = m.RelevanceScore
		m.RelevanceScore = clip01(m.RelevanceScore * m.GitContextWeight)
		m.WasBoosted = true
	}
}

func (s *Scorer) timeDecay(m *memclient.Memory) float64 {
	days, ok := s.daysOld(m)
	if !ok {
		return undatedDecay
	}
	return math.Exp(-s.decayRate * days)
}

func (s *Scorer) recencyBonus(m *memclient.Memory) float64 {
	days, ok := s.daysOld(m)
	if !ok {
		return 0
	}

	switch {
	case days < 1:
		return recencyToday
	case days < 7:
		return recencyThisWeek
	case days < 30:
		return recencyThisMonth
	}

	return 0
}

func (s *Scorer) daysOld(m *memclient.Memory) (float64, bool) {
	if m.CreatedAt <= 0 {
		return 0, false
	}

	age := float64(s.now().UnixMilli()) - m.CreatedAt
	if age < 0 {
		age = 0
	}

	return age / dayMillis, true
}

func tagRelevance(tags []string, proj *project.Context) float64 {
	if len(tags) == 0 {
		return 0
	}

	projectTags := map[string]bool{}
	for _, tag := range proj.Tags() {
		projectTags[strings.ToLower(tag)] = true
	}
	if len(projectTags) == 0 {
		return 0
	}

	matched := 0
	for _, tag := range tags {
		if projectTags[strings.ToLower(tag)] {
			matched++
		}
	}

	return float64(matched) / float64(len(projectTags))
}

func contentRelevance(content string, proj *project.Context, messageTerms []string) float64 {
	terms := map[string]bool{}
	for _, term := range proj.Tags() {
		terms[strings.ToLower(term)] = true
	}
	for _, term := range messageTerms {
		terms[strings.ToLower(term)] = true
	}
	if len(terms) == 0 {
		return 0
	}

	present := map[string]bool{}
	for _, word := range wordRe.FindAllString(strings.ToLower(content), -1) {
		present[word] = true
	}

	matched := 0
	for term := range terms {
		if present[term] {
			matched++
		}
	}

	return float64(matched) / float64(len(terms))
}

/*
contentQuality is a shape heuristic: substantial, structured content scores
higher than one-liners or walls of text.
*/
func contentQuality(content string) float64 {
	length := len(content)
	if length == 0 {
		return 0
	}

	var score float64

	switch {
	case length >= 100 && length <= 2000:
		score = 0.6
	case length > 2000:
		score = 0.4
	default:
		score = 0.2
	}

	if strings.Contains(content, "\n") {
		score += 0.2
	}
	if strings.Contains(content, "- ") || strings.Contains(content, "* ") || strings.Contains(content, "```") {
		score += 0.2
	}

	return clip01(score)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

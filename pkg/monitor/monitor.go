/*
Package monitor tracks the recent conversation and detects topic shifts. It
keeps a sliding window of messages and a current-topics set; each analysis
compares the incoming message against that state to estimate how likely a
memory retrieval is to help.
*/
package monitor

import (
	"strings"
	"sync"
	"time"

	"github.com/theapemachine/recall-go/pkg/patterns"
	"github.com/theapemachine/recall-go/pkg/perf"
)

const defaultWindowSize = 10

/*
Analysis is the monitor's verdict for a single message.
*/
type Analysis struct {
	Topics             []string
	KeyPhrases         []string
	SemanticShift      float64
	TriggerProbability float64
	Confidence         float64
	IsQuestion         bool
	PastWorkReference  bool
	Tier               perf.Tier
}

/*
Message is one history entry: the raw content plus the analysis it produced.
*/
type Message struct {
	Content  string
	At       time.Time
	Analysis Analysis
}

/*
Monitor holds the sliding message window and the current topic set. Safe for
concurrent use.
*/
type Monitor struct {
	mu         sync.Mutex
	windowSize int
	history    []Message
	topics     map[string]struct{}
	cache      *patterns.Cache[Analysis]
	now        func() time.Time
}

func New(windowSize int) *Monitor {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}

	return &Monitor{
		windowSize: windowSize,
		topics:     map[string]struct{}{},
		cache:      patterns.NewCache[Analysis](),
		now:        time.Now,
	}
}

/*
Analyze runs the allowed tiers against the message, appends it to history,
and rolls the current topic set forward. projectTerms carries identifiers
from the active project (name, language, frameworks) for the intensive
tier's relevance term.
*/
func (m *Monitor) Analyze(message string, projectTerms []string, tiers patterns.Tiers) Analysis {
	m.mu.Lock()
	defer m.mu.Unlock()

	analysis, cached := m.instant(message)

	if tiers.Fast && !cached {
		analysis = m.fast(message)

		if tiers.Intensive {
			analysis = m.intensive(message, analysis, projectTerms)
		}
	}

	m.record(message, analysis)

	return analysis
}

/*
Topics returns a copy of the current topic set.
*/
func (m *Monitor) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.topics))
	for t := range m.topics {
		out = append(out, t)
	}

	return out
}

/*
HistoryLen reports the current history length.
*/
func (m *Monitor) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.history)
}

// instant is the cheapest tier: a cache lookup, falling back to a regex scan
// for explicit memory requests and technology keywords.
func (m *Monitor) instant(message string) (Analysis, bool) {
	if prior, ok := m.cache.Get(message); ok {
		prior.Confidence = 0.8
		prior.Tier = perf.TierInstant
		return prior, true
	}

	analysis := Analysis{
		Tier:       perf.TierInstant,
		Confidence: 0.4,
	}

	if memoryRequestRe.MatchString(message) {
		analysis.TriggerProbability = 0.7
	}

	for _, word := range tokenize(message) {
		if _, ok := technicalVocabulary[word]; ok {
			analysis.Topics = append(analysis.Topics, word)
		}
	}

	if len(analysis.Topics) > 0 && analysis.TriggerProbability < 0.3 {
		analysis.TriggerProbability = 0.3
	}

	analysis.IsQuestion = questionOpenRe.MatchString(message)
	analysis.PastWorkReference = pastWorkRe.MatchString(message)

	return analysis, false
}

// fast tokenizes the message, extracts key phrases from the technical
// vocabulary, and measures the semantic shift against the current topics.
func (m *Monitor) fast(message string) Analysis {
	phrases := extractKeyPhrases(message)

	analysis := Analysis{
		Tier:       perf.TierFast,
		Confidence: 0.6,
		KeyPhrases: phrases,
		Topics:     phrases,
	}

	analysis.SemanticShift = m.shiftAgainstTopics(phrases)
	analysis.IsQuestion = questionOpenRe.MatchString(message)
	analysis.PastWorkReference = pastWorkRe.MatchString(message)

	probability := 0.0
	if analysis.IsQuestion {
		probability += 0.3
	}
	if analysis.PastWorkReference {
		probability += 0.4
	}
	if len(phrases) >= 3 {
		probability += 0.2
	}
	if analysis.SemanticShift > 0.5 {
		probability += 0.3
	}
	if probability > 1 {
		probability = 1
	}
	analysis.TriggerProbability = probability

	return analysis
}

// intensive enhances the fast result with recurring topics from recent
// history, a density-weighted shift, and a project-relevance term.
func (m *Monitor) intensive(message string, base Analysis, projectTerms []string) Analysis {
	analysis := base
	analysis.Tier = perf.TierIntensive
	analysis.Confidence = 0.75

	// Topics that came up more than once recently still count as current
	// even when the latest message does not mention them.
	counts := map[string]int{}
	for _, h := range m.history {
		for _, topic := range h.Analysis.Topics {
			counts[topic]++
		}
	}
	for topic, n := range counts {
		if n > 1 && !contains(analysis.Topics, topic) {
			analysis.Topics = append(analysis.Topics, topic)
		}
	}

	words := tokenize(message)
	if len(words) > 0 {
		density := float64(len(analysis.KeyPhrases)) / float64(len(words))
		lengthWeight := clip01(float64(len(words)) / 40.0)
		analysis.SemanticShift = clip01(base.SemanticShift * (0.5 + 0.5*lengthWeight) * (0.7 + density))
	}

	if relevance := overlap(words, projectTerms); relevance > 0 {
		analysis.TriggerProbability = clip01(analysis.TriggerProbability + 0.1*relevance)
	}

	return analysis
}

func (m *Monitor) record(message string, analysis Analysis) {
	m.cache.Put(message, analysis)

	m.history = append(m.history, Message{
		Content:  message,
		At:       m.now(),
		Analysis: analysis,
	})
	if max := m.windowSize * 2; len(m.history) > max {
		m.history = m.history[len(m.history)-max:]
	}

	if len(analysis.Topics) > 0 {
		m.topics = map[string]struct{}{}
		for _, t := range analysis.Topics {
			m.topics[t] = struct{}{}
		}
	}
}

// shiftAgainstTopics is 1 - Jaccard(currentTopics, phrases). The first
// message establishes the baseline and reports no shift.
func (m *Monitor) shiftAgainstTopics(phrases []string) float64 {
	if len(m.topics) == 0 {
		return 0
	}
	if len(phrases) == 0 {
		return 0
	}

	intersection := 0
	union := len(m.topics)
	for _, p := range phrases {
		if _, ok := m.topics[p]; ok {
			intersection++
		} else {
			union++
		}
	}

	return 1 - float64(intersection)/float64(union)
}

func extractKeyPhrases(message string) []string {
	var phrases []string
	seen := map[string]struct{}{}

	for _, word := range tokenize(message) {
		if _, ok := technicalVocabulary[word]; !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		phrases = append(phrases, word)
	}

	return phrases
}

func tokenize(message string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(message), -1)
	return raw
}

func overlap(words []string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}

	hits := 0
	for _, term := range terms {
		if contains(words, strings.ToLower(term)) {
			hits++
		}
	}

	return float64(hits) / float64(len(terms))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
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

/*
Package patterns implements the tiered pattern detector that decides whether
a user utterance should trigger memory retrieval. Three tiers run in order of
cost: instant literal regexes, fast contextual regexes, and intensive semantic
phrase bags. Regex-based detection on the instant tier is intentional; the
budget there is tight and precision matters more than recall.
*/
package patterns

import (
	"fmt"
	"strings"
	"sync"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/perf"
)

const (
	weightInstant   = 1.0
	weightFast      = 0.8
	weightIntensive = 0.6

	contextBoost       = 0.2
	phraseMatchMinimum = 0.3

	maxAdjustment  = 0.3
	adjustmentStep = 0.05
)

/*
Match is a single pattern hit with its tier and adjusted confidence.
*/
type Match struct {
	Tier        perf.Tier
	Category    string
	Description string
	Confidence  float64
}

/*
Detection is the detector's verdict for one message.
*/
type Detection struct {
	Matches               []Match
	Confidence            float64
	TriggerRecommendation bool
	Reasoning             string
}

/*
Tiers selects which tiers the caller allows for this analysis. Instant is
always honoured regardless of the flag.
*/
type Tiers struct {
	Instant   bool
	Fast      bool
	Intensive bool
}

/*
Detector holds the adaptive per-category confidence adjustments and the
bounded message cache. Safe for concurrent use.
*/
type Detector struct {
	mu          sync.Mutex
	sensitivity float64
	adaptive    bool
	adjustments map[string]float64
	cache       *Cache[Detection]
}

func NewDetector(cfg config.PatternDetector) *Detector {
	return &Detector{
		sensitivity: cfg.Sensitivity,
		adaptive:    cfg.AdaptiveLearning,
		adjustments: map[string]float64{},
		cache:       NewCache[Detection](),
	}
}

/*
Detect runs the allowed tiers against the message and combines the matches
into a trigger recommendation. Context carries tags such as "technical" or
"troubleshooting" that unlock the fast-tier boost.
*/
func (d *Detector) Detect(message string, context map[string]string, tiers Tiers) Detection {
	if cached, ok := d.cache.Get(message); ok {
		return cached
	}

	var matches []Match

	matches = append(matches, d.instantMatches(message)...)

	if tiers.Fast {
		matches = append(matches, d.fastMatches(message, context)...)
	}

	// Intensive analysis only pays off when the fast tier saw something but
	// could not make up its mind.
	if tiers.Intensive && d.shouldRunIntensive(matches) {
		matches = append(matches, d.intensiveMatches(message)...)
	}

	detection := d.decide(matches)
	d.cache.Put(message, detection)

	return detection
}

/*
RecordFeedback shifts the category's confidence adjustment in response to
user feedback on a trigger. Adjustments are bounded-step and clipped, and a
no-op when adaptive learning is disabled.
*/
func (d *Detector) RecordFeedback(category string, positive bool) {
	if !d.adaptive {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	step := adjustmentStep
	if !positive {
		step = -adjustmentStep
	}

	adj := d.adjustments[category] + step
	if adj > maxAdjustment {
		adj = maxAdjustment
	}
	if adj < -maxAdjustment {
		adj = -maxAdjustment
	}
	d.adjustments[category] = adj
}

/*
SetSensitivity replaces the global sensitivity multiplier. Values outside
[0,1] are clipped.
*/
func (d *Detector) SetSensitivity(s float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	d.sensitivity = s
}

// CacheSize reports the number of cached analyses. Tests only.
func (d *Detector) CacheSize() int { return d.cache.Len() }

func (d *Detector) instantMatches(message string) []Match {
	var matches []Match

	for _, p := range instantPatterns {
		if p.Regex.MatchString(message) {
			matches = append(matches, Match{
				Tier:        perf.TierInstant,
				Category:    p.Category,
				Description: p.Description,
				Confidence:  d.adjusted(p.Category, p.Confidence),
			})
		}
	}

	return matches
}

func (d *Detector) fastMatches(message string, context map[string]string) []Match {
	var matches []Match

	for _, p := range fastPatterns {
		if !p.Regex.MatchString(message) {
			continue
		}

		conf := d.adjusted(p.Category, p.Confidence)
		if contextHasAny(context, p.RequiredTags) {
			conf += contextBoost
		}
		if conf > 1 {
			conf = 1
		}

		matches = append(matches, Match{
			Tier:        perf.TierFast,
			Category:    p.Category,
			Description: p.Description,
			Confidence:  conf,
		})
	}

	return matches
}

func (d *Detector) intensiveMatches(message string) []Match {
	var matches []Match
	lower := strings.ToLower(message)

	for _, bag := range phraseBags {
		hits := 0
		for _, phrase := range bag.Phrases {
			if phraseCovered(lower, phrase) {
				hits++
			}
		}

		fraction := float64(hits) / float64(len(bag.Phrases))
		if fraction <= phraseMatchMinimum {
			continue
		}

		matches = append(matches, Match{
			Tier:        perf.TierIntensive,
			Category:    bag.Category,
			Description: "semantic phrase coverage",
			Confidence:  d.adjusted(bag.Category, bag.Confidence) * fraction,
		})
	}

	return matches
}

func (d *Detector) shouldRunIntensive(matches []Match) bool {
	sawFast := false
	best := 0.0

	for _, m := range matches {
		if m.Tier == perf.TierFast {
			sawFast = true
		}
		if m.Confidence > best {
			best = m.Confidence
		}
	}

	return sawFast && best < 0.7
}

func (d *Detector) decide(matches []Match) Detection {
	if len(matches) == 0 {
		return Detection{Reasoning: "no patterns matched"}
	}

	var weightedSum, weightTotal float64
	explicitConfidence := 0.0

	for _, m := range matches {
		w := tierWeight(m.Tier)
		weightedSum += m.Confidence * w
		weightTotal += w

		if m.Category == CategoryExplicitMemoryRequest && m.Confidence > explicitConfidence {
			explicitConfidence = m.Confidence
		}
	}

	overall := weightedSum / weightTotal

	detection := Detection{
		Matches:    matches,
		Confidence: overall,
	}

	switch {
	case overall >= 0.8:
		detection.TriggerRecommendation = true
		detection.Reasoning = fmt.Sprintf("high overall confidence %.2f", overall)
	case overall >= 0.6 && len(matches) >= 2:
		detection.TriggerRecommendation = true
		detection.Reasoning = fmt.Sprintf("confidence %.2f across %d matches", overall, len(matches))
	case explicitConfidence >= 0.5:
		detection.TriggerRecommendation = true
		detection.Reasoning = fmt.Sprintf("explicit memory request at %.2f", explicitConfidence)
	case overall >= 0.4:
		detection.TriggerRecommendation = true
		detection.Reasoning = fmt.Sprintf("moderate confidence %.2f with matches", overall)
	default:
		detection.Reasoning = fmt.Sprintf("confidence %.2f below threshold", overall)
	}

	return detection
}

func (d *Detector) adjusted(category string, base float64) float64 {
	d.mu.Lock()
	adj := d.adjustments[category]
	sensitivity := d.sensitivity
	d.mu.Unlock()

	// Sensitivity scales around a 0.7 midpoint so the default config leaves
	// base confidences untouched.
	conf := base*(sensitivity/0.7) + adj
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return conf
}

func tierWeight(tier perf.Tier) float64 {
	switch tier {
	case perf.TierInstant:
		return weightInstant
	case perf.TierFast:
		return weightFast
	case perf.TierIntensive:
		return weightIntensive
	}
	return weightFast
}

// contextHasAny reports whether any required tag appears as a key or a value
// in the caller's context map.
func contextHasAny(context map[string]string, tags []string) bool {
	for _, tag := range tags {
		if _, ok := context[tag]; ok {
			return true
		}
		for _, v := range context {
			if strings.EqualFold(v, tag) {
				return true
			}
		}
	}
	return false
}

// phraseCovered reports whether every word of the phrase occurs in the
// message.
func phraseCovered(lowerMessage, phrase string) bool {
	for _, word := range strings.Fields(phrase) {
		if !strings.Contains(lowerMessage, word) {
			return false
		}
	}
	return true
}

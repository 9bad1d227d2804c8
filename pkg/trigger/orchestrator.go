/*
Package trigger decides whether a mid-conversation message warrants a
memory retrieval. It combines the pattern detector and conversation
monitor under the performance manager's tier budget, honours the #skip and
#remember overrides, and enforces a process-wide cooldown between accepted
triggers.
*/
package trigger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/monitor"
	"github.com/theapemachine/recall-go/pkg/patterns"
	"github.com/theapemachine/recall-go/pkg/perf"
)

const (
	patternWeight      = 0.6
	conversationWeight = 0.4

	shiftBoost    = 0.2
	questionBoost = 0.1
	pastWorkBoost = 0.15

	shiftBoostThreshold = 0.6

	// speed_focused attenuates borderline scores instead of paying for
	// deeper analysis.
	speedFocusedAttenuation = 0.8

	analysisOp = "midConversation"
)

/*
Decision is the outcome of one message analysis. Reasoning is a short
human-readable account of why the decision fell the way it did.
*/
type Decision struct {
	ShouldTrigger bool
	Confidence    float64
	Reasoning     string
	Override      string
	MaxMemories   int
	Pattern       patterns.Detection
	Conversation  monitor.Analysis
	Shift         Shift
}

/*
Analytics counts decisions over the process lifetime.
*/
type Analytics struct {
	Analyzed  int
	Triggered int
	Skipped   int
	Cooldowns int
}

/*
Orchestrator owns the trigger pipeline for one process. Use Shared for the
process-wide instance that carries the cooldown.
*/
type Orchestrator struct {
	mu           sync.Mutex
	cfg          *config.Config
	perf         *perf.Manager
	detector     *patterns.Detector
	monitor      *monitor.Monitor
	shifts       *ShiftDetector
	lastAccepted time.Time
	analytics    Analytics
	now          func() time.Time
}

func NewOrchestrator(cfg *config.Config, perfManager *perf.Manager) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		perf:     perfManager,
		detector: patterns.NewDetector(cfg.PatternDetector),
		monitor:  monitor.New(0),
		shifts:   NewShiftDetector(),
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

/*
Request carries one user message plus its conversational surroundings into
the decision.
*/
type Request struct {
	Message      string
	ProjectTerms []string
	Context      map[string]string
	Snapshot     Snapshot
}

/*
Decide analyzes the message and returns the trigger decision. Overrides
short-circuit analysis; the cooldown window rejects otherwise-valid
triggers. Every analysis records a latency sample with the performance
manager.
*/
func (o *Orchestrator) Decide(req Request) Decision {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.analytics.Analyzed++

	if !o.cfg.NaturalTriggers.Enabled {
		return Decision{Reasoning: "natural triggers disabled"}
	}

	if HasSkip(req.Message) {
		o.analytics.Skipped++
		return Decision{
			Override:  "skip",
			Reasoning: "skip override present",
		}
	}

	if HasRemember(req.Message) {
		o.lastAccepted = time.Time{}
		o.analytics.Triggered++
		return Decision{
			ShouldTrigger: true,
			Confidence:    1.0,
			Override:      "remember",
			Reasoning:     "remember override forces retrieval",
			MaxMemories:   o.maxMemories(),
		}
	}

	cooldown := o.cfg.NaturalTriggers.CooldownPeriod
	if !o.lastAccepted.IsZero() && o.now().Sub(o.lastAccepted) < cooldown {
		o.analytics.Cooldowns++
		return Decision{
			Reasoning: fmt.Sprintf("cooldown active (%s remaining)",
				(cooldown - o.now().Sub(o.lastAccepted)).Round(time.Millisecond)),
		}
	}

	handle := o.perf.StartTiming(analysisOp, perf.TierFast)

	tiers := patterns.Tiers{
		Instant:   true,
		Fast:      o.perf.ShouldRunHook(analysisOp, perf.TierFast),
		Intensive: o.perf.ShouldRunHook(analysisOp, perf.TierIntensive),
	}

	detection := o.detector.Detect(req.Message, req.Context, tiers)
	analysis := o.monitor.Analyze(req.Message, req.ProjectTerms, tiers)

	snapshot := req.Snapshot
	if snapshot.Taken.IsZero() {
		snapshot.Taken = o.now()
	}
	if len(snapshot.Topics) == 0 {
		snapshot.Topics = analysis.Topics
	}
	shift := o.shifts.Observe(snapshot, false)

	if _, err := o.perf.EndTiming(handle); err != nil {
		log.Debug("timing handle lost", "error", err)
	}

	decision := o.combine(detection, analysis, shift)

	if decision.ShouldTrigger {
		o.lastAccepted = o.now()
		o.analytics.Triggered++
	}

	return decision
}

func (o *Orchestrator) combine(detection patterns.Detection, analysis monitor.Analysis, shift Shift) Decision {
	score := detection.Confidence*patternWeight + analysis.TriggerProbability*conversationWeight

	var reasons []string
	reasons = append(reasons, fmt.Sprintf("pattern %.2f", detection.Confidence))
	reasons = append(reasons, fmt.Sprintf("conversation %.2f", analysis.TriggerProbability))

	if analysis.SemanticShift > shiftBoostThreshold {
		score += shiftBoost
		reasons = append(reasons, "semantic shift")
	}
	if analysis.IsQuestion {
		score += questionBoost
		reasons = append(reasons, "question")
	}
	if analysis.PastWorkReference {
		score += pastWorkBoost
		reasons = append(reasons, "past work reference")
	}

	if score > 1 {
		score = 1
	}

	threshold := o.cfg.NaturalTriggers.TriggerThreshold

	name, _ := o.perf.ActiveProfile()
	if name == "speed_focused" && score < threshold {
		score *= speedFocusedAttenuation
		reasons = append(reasons, "speed-focused attenuation")
	}

	decision := Decision{
		Confidence:   score,
		Pattern:      detection,
		Conversation: analysis,
		Shift:        shift,
		Reasoning:    strings.Join(reasons, ", "),
	}

	if score >= threshold {
		decision.ShouldTrigger = true
		decision.MaxMemories = o.maxMemories()
		if shift.Detected {
			decision.MaxMemories = shift.Strategy.MaxMemories
		}
	}

	return decision
}

func (o *Orchestrator) maxMemories() int {
	if o.cfg.NaturalTriggers.MaxMemoriesPerTrigger > 0 {
		return o.cfg.NaturalTriggers.MaxMemoriesPerTrigger
	}
	return 5
}

/*
RecordFeedback forwards user feedback about an injection to both adaptive
loops: the pattern detector's confidence adjustments and the performance
manager's latency tolerance.
*/
func (o *Orchestrator) RecordFeedback(categories []string, positive bool, latency time.Duration) {
	for _, category := range categories {
		o.detector.RecordFeedback(category, positive)
	}
	o.perf.RecordUserFeedback(positive, latency)
}

// Stats returns a copy of the decision counters.
func (o *Orchestrator) Stats() Analytics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.analytics
}

var (
	sharedMu sync.Mutex
	shared   *Orchestrator
)

/*
Shared returns the process-wide orchestrator, creating it on first use.
The singleton is what makes the cooldown span concurrent host events.
*/
func Shared(cfg *config.Config, perfManager *perf.Manager) *Orchestrator {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = NewOrchestrator(cfg, perfManager)
	}

	return shared
}

// ResetShared discards the singleton. Intended for tests.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}

package trigger

import (
	"strings"
	"time"
)

// Primary reasons a context refresh can be recommended, strongest first.
const (
	ReasonUserRequest       = "user-request"
	ReasonProjectChange     = "project-change"
	ReasonFrameworkChange   = "framework-change"
	ReasonTopicShift        = "topic-shift"
	ReasonTimeBased         = "time-based"
	ReasonConversationDepth = "conversation-depth"
)

const (
	staleContextAfter = 30 * time.Minute
	depthInterval     = 20

	shiftThreshold = 0.5
)

/*
Snapshot captures the conversational surroundings at one point in time, for
comparison against the previous snapshot.
*/
type Snapshot struct {
	WorkingDirectory string
	Topics           []string
	Frameworks       []string
	Depth            int
	Taken            time.Time
}

/*
RefreshStrategy shapes the retrieval that follows an accepted context
shift.
*/
type RefreshStrategy struct {
	MaxMemories int
	ShowScores  bool
	Banner      string
}

/*
Shift is the outcome of comparing two snapshots: a weighted score, the
strongest contributing reason, and the refresh strategy that reason
selects.
*/
type Shift struct {
	Detected bool
	Score    float64
	Reason   string
	Strategy RefreshStrategy
}

/*
ShiftDetector compares successive snapshots of the conversation
surroundings. Not safe for concurrent use; the orchestrator serializes
access.
*/
type ShiftDetector struct {
	prev *Snapshot
}

func NewShiftDetector() *ShiftDetector { return &ShiftDetector{} }

/*
Observe compares the snapshot against the previous one and records it as
the new baseline. The first observation never detects a shift;
userRequested forces a full refresh regardless of the comparison.
*/
func (d *ShiftDetector) Observe(snap Snapshot, userRequested bool) Shift {
	prev := d.prev
	d.prev = &snap

	if userRequested {
		return Shift{
			Detected: true,
			Score:    1.0,
			Reason:   ReasonUserRequest,
			Strategy: strategyFor(ReasonUserRequest),
		}
	}

	if prev == nil {
		return Shift{}
	}

	type signal struct {
		reason string
		weight float64
	}

	var signals []signal

	if snap.WorkingDirectory != "" && prev.WorkingDirectory != "" &&
		snap.WorkingDirectory != prev.WorkingDirectory {
		signals = append(signals, signal{ReasonProjectChange, 0.9})
	}

	if frameworksChanged(prev.Frameworks, snap.Frameworks) {
		signals = append(signals, signal{ReasonFrameworkChange, 0.6})
	}

	if topicDivergence(prev.Topics, snap.Topics) > 0.6 {
		signals = append(signals, signal{ReasonTopicShift, 0.5})
	}

	if !prev.Taken.IsZero() && snap.Taken.Sub(prev.Taken) > staleContextAfter {
		signals = append(signals, signal{ReasonTimeBased, 0.3})
	}

	if snap.Depth > 0 && snap.Depth%depthInterval == 0 && snap.Depth != prev.Depth {
		signals = append(signals, signal{ReasonConversationDepth, 0.2})
	}

	var score float64
	primary := ""
	best := 0.0

	for _, sig := range signals {
		score += sig.weight
		if sig.weight > best {
			best = sig.weight
			primary = sig.reason
		}
	}

	if score > 1 {
		score = 1
	}

	if score < shiftThreshold {
		return Shift{Score: score}
	}

	return Shift{
		Detected: true,
		Score:    score,
		Reason:   primary,
		Strategy: strategyFor(primary),
	}
}

// Reset clears the baseline snapshot.
func (d *ShiftDetector) Reset() { d.prev = nil }

func strategyFor(reason string) RefreshStrategy {
	switch reason {
	case ReasonUserRequest:
		return RefreshStrategy{MaxMemories: 8, ShowScores: true, Banner: "Refreshed context (requested)"}
	case ReasonProjectChange:
		return RefreshStrategy{MaxMemories: 8, Banner: "Context for the new project"}
	case ReasonFrameworkChange:
		return RefreshStrategy{MaxMemories: 5, Banner: "Context for the new stack"}
	case ReasonTopicShift:
		return RefreshStrategy{MaxMemories: 5, Banner: "Context for the new topic"}
	case ReasonTimeBased:
		return RefreshStrategy{MaxMemories: 3, Banner: "Context refresh"}
	case ReasonConversationDepth:
		return RefreshStrategy{MaxMemories: 3, Banner: "Context refresh"}
	}

	return RefreshStrategy{MaxMemories: 3}
}

func frameworksChanged(prev, current []string) bool {
	if len(prev) == 0 || len(current) == 0 {
		return false
	}

	set := map[string]bool{}
	for _, f := range prev {
		set[strings.ToLower(f)] = true
	}

	for _, f := range current {
		if !set[strings.ToLower(f)] {
			return true
		}
	}

	return false
}

// topicDivergence is 1 minus the Jaccard overlap of the two topic sets.
func topicDivergence(prev, current []string) float64 {
	if len(prev) == 0 || len(current) == 0 {
		return 0
	}

	a := map[string]bool{}
	for _, t := range prev {
		a[strings.ToLower(t)] = true
	}

	intersection := 0
	union := len(a)
	for _, t := range current {
		key := strings.ToLower(t)
		if a[key] {
			intersection++
		} else {
			union++
		}
	}

	return 1 - float64(intersection)/float64(union)
}

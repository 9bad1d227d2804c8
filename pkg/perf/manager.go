/*
Package perf tracks per-operation latencies for the analysis tiers and owns
the active performance profile. Every analysis attempt is expected to record
a sample through StartTiming/EndTiming, even when the analysis itself fails,
so the adaptive budgeting always has data to work with.
*/
package perf

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/errors"
)

/*
Tier is the latency class of an analysis step. A profile's enabled tiers
decide which steps are allowed to run; instant is always permitted.
*/
type Tier string

const (
	TierInstant   Tier = "instant"
	TierFast      Tier = "fast"
	TierIntensive Tier = "intensive"
)

/*
Budget returns the expected latency for the tier, used for per-operation
budget checks and tier-reduction recommendations.
*/
func (t Tier) Budget() time.Duration {
	switch t {
	case TierInstant:
		return 50 * time.Millisecond
	case TierFast:
		return 150 * time.Millisecond
	case TierIntensive:
		return 500 * time.Millisecond
	}
	return 150 * time.Millisecond
}

const (
	maxTotalSamples    = 100
	maxPerOpSamples    = 50
	maxFeedbackSamples = 50
)

/*
Result is returned by EndTiming and summarizes a single measured operation.
*/
type Result struct {
	Latency          time.Duration
	Tier             Tier
	WithinBudget     bool
	ExceedsThreshold bool
	// RecommendTierReduction is set when the profile auto-adjusts and the
	// operation's five most recent samples average above 1.5x its budget.
	RecommendTierReduction bool
}

type timing struct {
	op       string
	tier     Tier
	start    time.Time
	expected time.Duration
}

type feedbackSample struct {
	Positive bool
	Latency  time.Duration
	At       time.Time
}

/*
Manager owns the rolling latency windows and the active profile. All methods
are safe for concurrent use.
*/
type Manager struct {
	mu sync.Mutex

	profiles   map[string]config.Profile
	activeName string

	total        []time.Duration
	perOp        map[string][]time.Duration
	degradations int
	feedback     []feedbackSample
	tolerance    float64

	pending map[string]timing

	now func() time.Time
}

/*
NewManager builds a manager from the performance configuration. The default
profile must exist.
*/
func NewManager(cfg config.Performance) (*Manager, error) {
	if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
		return nil, errors.NewConfigError(
			"performance.defaultProfile",
			"unknown profile: "+cfg.DefaultProfile,
		)
	}

	return &Manager{
		profiles:   cfg.Profiles,
		activeName: cfg.DefaultProfile,
		perOp:      map[string][]time.Duration{},
		pending:    map[string]timing{},
		tolerance:  0.5,
		now:        time.Now,
	}, nil
}

/*
StartTiming opens a timing window for the named operation and returns an
opaque handle to pass to EndTiming.
*/
func (m *Manager) StartTiming(op string, tier Tier) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle := uuid.NewString()
	m.pending[handle] = timing{
		op:       op,
		tier:     tier,
		start:    m.now(),
		expected: tier.Budget(),
	}

	return handle
}

/*
EndTiming closes a timing window, records the sample in both the per-op and
rolling total windows, and reports budget status. Unknown handles return an
error without recording anything.
*/
func (m *Manager) EndTiming(handle string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.pending[handle]
	if !ok {
		return Result{}, errors.NewConfigError("handle", "unknown timing handle")
	}
	delete(m.pending, handle)

	latency := m.now().Sub(t.start)

	m.total = append(m.total, latency)
	if len(m.total) > maxTotalSamples {
		m.total = m.total[len(m.total)-maxTotalSamples:]
	}

	samples := append(m.perOp[t.op], latency)
	if len(samples) > maxPerOpSamples {
		samples = samples[len(samples)-maxPerOpSamples:]
	}
	m.perOp[t.op] = samples

	profile := m.activeProfileLocked()

	res := Result{
		Latency:      latency,
		Tier:         t.tier,
		WithinBudget: latency <= t.expected,
	}

	if latency > profile.DegradeThreshold {
		m.degradations++
		res.ExceedsThreshold = true
	}

	if profile.AutoAdjust && len(samples) >= 5 {
		recent := samples[len(samples)-5:]
		var sum time.Duration
		for _, s := range recent {
			sum += s
		}
		if sum/5 > time.Duration(float64(t.expected)*1.5) {
			res.RecommendTierReduction = true
		}
	}

	return res, nil
}

/*
ShouldRunHook reports whether the named operation is allowed to run on the
given tier under the active profile. Disabled tiers never run; operations
whose recent average latency exceeds 1.2x their tier budget are held back
until the average recovers.
*/
func (m *Manager) ShouldRunHook(op string, tier Tier) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile := m.activeProfileLocked()

	if !tierEnabled(profile.EnabledTiers, tier) {
		return false
	}

	samples := m.perOp[op]
	if len(samples) == 0 {
		return true
	}

	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	avg := sum / time.Duration(len(samples))

	return avg <= time.Duration(float64(tier.Budget())*1.2)
}

/*
SwitchProfile atomically replaces the active budget. Unknown names are
rejected with a ConfigError and leave the active profile untouched.
*/
func (m *Manager) SwitchProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[name]; !ok {
		return errors.NewConfigError("profile", "unknown profile: "+name)
	}

	m.activeName = name

	return nil
}

/*
RecordUserFeedback nudges the tolerance level by 0.1 per event, clipped to
[0,1]. Positive feedback at high latency raises tolerance (the user did not
mind the wait); negative feedback at low latency lowers it (even fast
analysis annoyed them).
*/
func (m *Manager) RecordUserFeedback(positive bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.feedback = append(m.feedback, feedbackSample{
		Positive: positive,
		Latency:  latency,
		At:       m.now(),
	})
	if len(m.feedback) > maxFeedbackSamples {
		m.feedback = m.feedback[len(m.feedback)-maxFeedbackSamples:]
	}

	profile := m.activeProfileLocked()

	if positive && latency > profile.MaxLatency {
		m.tolerance = clip(m.tolerance+0.1, 0, 1)
	} else if !positive && latency <= profile.MaxLatency {
		m.tolerance = clip(m.tolerance-0.1, 0, 1)
	}
}

/*
ActiveProfile returns the name and resolved budget of the active profile.
For the adaptive profile, the budget is recalculated from observed history
on every call.
*/
func (m *Manager) ActiveProfile() (string, config.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.activeName, m.activeProfileLocked()
}

/*
Degradations returns the number of recorded degradation events.
*/
func (m *Manager) Degradations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.degradations
}

/*
Tolerance returns the current user tolerance level.
*/
func (m *Manager) Tolerance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tolerance
}

func (m *Manager) activeProfileLocked() config.Profile {
	profile := m.profiles[m.activeName]

	if !profile.AutoAdjust {
		return profile
	}

	// Adaptive profile: recalculate latency budget and tiers from history.
	if len(m.total) >= 10 {
		var sum time.Duration
		for _, s := range m.total {
			sum += s
		}
		avg := sum / time.Duration(len(m.total))
		budget := time.Duration(float64(avg) * (1 + m.tolerance))
		profile.MaxLatency = clipDuration(budget, 100*time.Millisecond, 500*time.Millisecond)
	} else {
		profile.MaxLatency = 200 * time.Millisecond
	}

	switch {
	case m.tolerance < 0.3:
		profile.EnabledTiers = []string{string(TierInstant)}
	case m.tolerance < 0.7:
		profile.EnabledTiers = []string{string(TierInstant), string(TierFast)}
	default:
		profile.EnabledTiers = []string{string(TierInstant), string(TierFast), string(TierIntensive)}
	}

	profile.DegradeThreshold = profile.MaxLatency * 2

	return profile
}

func tierEnabled(enabled []string, tier Tier) bool {
	if tier == TierInstant {
		// Instant is always permitted.
		return true
	}
	for _, t := range enabled {
		if t == string(tier) {
			return true
		}
	}
	return false
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clipDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetClock overrides the manager's time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

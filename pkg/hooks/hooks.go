/*
Package hooks is the surface the host runtime calls into: one handler per
host event (session start, user message, session end). Every handler runs
under a hard deadline, recovers from panics, and degrades to "no
injection" rather than failing the host event. Each analysis attempt
records a latency sample with the performance manager, including the ones
that time out.
*/
package hooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/consolidate"
	"github.com/theapemachine/recall-go/pkg/gitctx"
	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/perf"
	"github.com/theapemachine/recall-go/pkg/project"
	"github.com/theapemachine/recall-go/pkg/retrieval"
	"github.com/theapemachine/recall-go/pkg/state"
	"github.com/theapemachine/recall-go/pkg/trigger"
)

const (
	sessionStartTimeout = 9500 * time.Millisecond
	userMessageTimeout  = 10 * time.Second
	sessionEndTimeout   = 15 * time.Second
)

/*
HookContext is the record the host passes with every event. Fields that do
not apply to an event are left empty; InjectSystemMessage may be nil when
the host cannot accept injections.
*/
type HookContext struct {
	WorkingDirectory    string
	SessionID           string
	UserMessage         string
	ConversationState   string
	PreviousContext     string
	Trigger             string
	InjectSystemMessage func(string) error
}

/*
Runner wires the full pipeline behind the three handlers.
*/
type Runner struct {
	cfg          *config.Config
	perf         *perf.Manager
	client       memclient.Client
	state        *state.Manager
	trigger      *trigger.Orchestrator
	retriever    *retrieval.Orchestrator
	consolidator *consolidate.Consolidator
}

func NewRunner(cfg *config.Config, stateDir string) (*Runner, error) {
	perfManager, err := perf.NewManager(cfg.Performance)
	if err != nil {
		return nil, err
	}

	client, err := memclient.New(cfg.MemoryService)
	if err != nil {
		return nil, err
	}

	stateManager, err := state.NewManager(stateDir)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:          cfg,
		perf:         perfManager,
		client:       client,
		state:        stateManager,
		trigger:      trigger.Shared(cfg, perfManager),
		retriever:    retrieval.NewOrchestrator(client, cfg),
		consolidator: consolidate.New(client),
	}, nil
}

// Client exposes the memory client for the CLI health command.
func (r *Runner) Client() memclient.Client { return r.client }

// Perf exposes the performance manager for the CLI profile command.
func (r *Runner) Perf() *perf.Manager { return r.perf }

/*
SessionStart builds project and git context for the working directory,
retrieves an initial memory set, and injects it. The previous session, if
any, is threaded into a fresh session record.
*/
func (r *Runner) SessionStart(ctx context.Context, hc HookContext) {
	ctx, cancel := context.WithTimeout(ctx, sessionStartTimeout)
	defer cancel()

	defer recoverNoInjection("session-start")

	handle := r.perf.StartTiming("sessionStart", perf.TierIntensive)
	defer r.perf.EndTiming(handle)

	proj, gc := r.buildContext(ctx, hc.WorkingDirectory)

	sessionID := hc.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	record := state.SessionRecord{
		SessionID:        sessionID,
		Project:          proj.Name,
		WorkingDirectory: hc.WorkingDirectory,
		StartedAt:        time.Now(),
	}
	if previous, ok := r.state.LatestSession(); ok {
		record.PreviousSessionID = previous.SessionID
	}
	if err := r.state.SaveSession(record); err != nil {
		log.Warn("session record not saved", "error", err)
	}

	result, err := r.retriever.Retrieve(ctx, retrieval.Request{
		Project: proj,
		Git:     gc,
	})
	if err != nil {
		log.Warn("session start retrieval failed", "error", err)
		r.logEvent(sessionID, "session-start", 0, 0)
		return
	}

	r.inject(hc, result.ContextBlock)
	r.logEvent(sessionID, "session-start", len(result.Memories), result.Elapsed)
	r.updateStatus(len(result.Memories))
}

/*
UserMessage runs the trigger decision for a mid-conversation message and
retrieves only when the decision says so.
*/
func (r *Runner) UserMessage(ctx context.Context, hc HookContext) {
	ctx, cancel := context.WithTimeout(ctx, userMessageTimeout)
	defer cancel()

	defer recoverNoInjection("user-message")

	proj, gc := r.buildContext(ctx, hc.WorkingDirectory)

	decision := r.trigger.Decide(trigger.Request{
		Message:      hc.UserMessage,
		ProjectTerms: proj.Tags(),
		Context:      messageContext(hc),
		Snapshot: trigger.Snapshot{
			WorkingDirectory: hc.WorkingDirectory,
			Frameworks:       proj.Frameworks,
			Depth:            messageDepth(hc.ConversationState),
		},
	})

	if !decision.ShouldTrigger {
		log.Debug("no retrieval", "reasoning", decision.Reasoning)
		r.logEvent(hc.SessionID, "user-message", 0, 0)
		return
	}

	opts := retrieval.Options{MaxMemories: decision.MaxMemories}
	if decision.Shift.Detected {
		opts.ShowScores = decision.Shift.Strategy.ShowScores
		opts.Banner = decision.Shift.Strategy.Banner
	}

	result, err := r.retriever.Retrieve(ctx, retrieval.Request{
		Project: proj,
		Git:     gc,
		Message: hc.UserMessage,
		Options: opts,
	})
	if err != nil {
		log.Warn("triggered retrieval failed", "error", err)
		r.logEvent(hc.SessionID, "user-message", 0, 0)
		return
	}

	r.inject(hc, result.ContextBlock)
	r.logEvent(hc.SessionID, "user-message", len(result.Memories), result.Elapsed)
	r.updateStatus(len(result.Memories))

	if record, ok := r.state.LoadSession(hc.SessionID); ok {
		record.MessageCount++
		record.TriggerCount++
		if err := r.state.SaveSession(record); err != nil {
			log.Debug("session record not updated", "error", err)
		}
	}
}

/*
SessionEnd consolidates the finished conversation into a stored memory and
closes the session record.
*/
func (r *Runner) SessionEnd(ctx context.Context, hc HookContext) {
	ctx, cancel := context.WithTimeout(ctx, sessionEndTimeout)
	defer cancel()

	defer recoverNoInjection("session-end")

	handle := r.perf.StartTiming("sessionEnd", perf.TierIntensive)
	defer r.perf.EndTiming(handle)

	proj := project.Detect(hc.WorkingDirectory)

	hash, err := r.consolidator.Consolidate(ctx, consolidate.Session{
		SessionID:       hc.SessionID,
		Transcript:      hc.ConversationState,
		LastUserMessage: hc.UserMessage,
		Project:         proj,
	})
	if err != nil {
		log.Warn("session consolidation failed", "error", err)
	} else if hash != "" {
		log.Info("session stored", "hash", hash)
	}

	if record, ok := r.state.LoadSession(hc.SessionID); ok {
		record.EndedAt = time.Now()
		if err := r.state.SaveSession(record); err != nil {
			log.Debug("session record not closed", "error", err)
		}
	}

	r.logEvent(hc.SessionID, "session-end", 0, 0)

	if err := r.client.Disconnect(); err != nil {
		log.Debug("disconnect failed", "error", err)
	}
}

func (r *Runner) buildContext(ctx context.Context, workingDir string) (*project.Context, *gitctx.Context) {
	proj := project.Detect(workingDir)

	var gc *gitctx.Context
	if r.cfg.GitAnalysis.Enabled && proj.Git.IsRepo {
		analyzer := gitctx.NewAnalyzer(workingDir, r.cfg.GitAnalysis.CommitLookback, r.cfg.GitAnalysis.MaxCommits)
		gc = analyzer.Analyze(ctx)
	}

	return proj, gc
}

func (r *Runner) inject(hc HookContext, block string) {
	if block == "" || hc.InjectSystemMessage == nil {
		return
	}

	if err := hc.InjectSystemMessage(block); err != nil {
		log.Warn("injection rejected by host", "error", err)
	}
}

func (r *Runner) logEvent(sessionID, event string, injected int, elapsed time.Duration) {
	r.state.AppendContextLog(state.ContextEntry{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Event:     event,
		Injected:  injected,
		ElapsedMS: elapsed.Milliseconds(),
	})
}

func (r *Runner) updateStatus(memoryCount int) {
	name, _ := r.perf.ActiveProfile()
	r.state.WriteStatusLine(state.StatusLine{
		Profile:       name,
		Transport:     r.client.Name(),
		MemoryCount:   memoryCount,
		LastInjection: time.Now(),
	})
}

func recoverNoInjection(event string) {
	if rec := recover(); rec != nil {
		log.Error("hook recovered", "event", event, "panic", fmt.Sprint(rec))
	}
}

// messageContext derives the tag dictionary the pattern detector's fast
// tier matches against.
func messageContext(hc HookContext) map[string]string {
	tags := map[string]string{}

	lower := strings.ToLower(hc.UserMessage + " " + hc.Trigger)
	for _, tag := range []string{"technical", "security", "data", "continuation", "troubleshooting"} {
		if strings.Contains(lower, tag) {
			tags[tag] = tag
		}
	}
	if hc.PreviousContext != "" {
		tags["continuation"] = "continuation"
	}

	return tags
}

func messageDepth(conversationState string) int {
	if conversationState == "" {
		return 0
	}
	return strings.Count(conversationState, "\n") + 1
}

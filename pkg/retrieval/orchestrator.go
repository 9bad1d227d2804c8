/*
Package retrieval runs the multi-phase memory retrieval pipeline: git
context first, then recent semantic work, tagged decisions, a broad
fallback when the haul is thin, and finally compressed clusters. Phases
are serialized so deduplication stays deterministic; a wall-clock guard
stops the pipeline early rather than failing the host event.
*/
package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/gitctx"
	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/project"
	"github.com/theapemachine/recall-go/pkg/scoring"
)

const (
	wallBudget = 9500 * time.Millisecond

	defaultMaxMemories    = 8
	defaultMaxGitMemories = 3
	defaultRecentRatio    = 0.6

	fallbackFloor = 3
	maxClusters   = 3

	tagTimeWindow     = "last-2-weeks"
	clusterTimeWindow = "last-month"
)

var decisionTags = []string{"key-decisions", "architecture", "assistant-reference"}

/*
Options carries per-event presentation and sizing overrides, typically
chosen by a context-refresh strategy.
*/
type Options struct {
	MaxMemories int
	ShowScores  bool
	Banner      string
}

/*
Request describes one retrieval event. Git may be nil when the working
directory is not a repository; Message is empty on session start.
*/
type Request struct {
	Project *project.Context
	Git     *gitctx.Context
	Message string
	Options Options
}

/*
Result is the ranked, formatted outcome of a retrieval. PhaseCounts maps
phase name to the number of memories that phase contributed after
deduplication.
*/
type Result struct {
	Memories     []memclient.Memory
	ContextBlock string
	PhaseCounts  map[string]int
	Elapsed      time.Duration
}

/*
Orchestrator wires the memory client, scorer configuration, and output
settings into the phased pipeline.
*/
type Orchestrator struct {
	client memclient.Client
	cfg    *config.Config
	now    func() time.Time
}

func NewOrchestrator(client memclient.Client, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

/*
Retrieve runs the phases in order, deduplicating as it collects, then
scores, boosts, and formats the survivors. A deadline hit mid-pipeline
returns whatever was collected so far; only a total transport failure
surfaces as an error.
*/
func (o *Orchestrator) Retrieve(ctx context.Context, req Request) (*Result, error) {
	started := o.now()

	ctx, cancel := context.WithTimeout(ctx, wallBudget)
	defer cancel()

	maxMemories := o.cfg.MemoryService.MaxMemories
	if maxMemories <= 0 {
		maxMemories = defaultMaxMemories
	}
	if req.Options.MaxMemories > 0 && req.Options.MaxMemories < maxMemories {
		maxMemories = req.Options.MaxMemories
	}

	deduper := NewDeduper(o.cfg.MemoryScoring.DedupThreshold, o.cfg.MemoryScoring.DedupMinLength)
	counts := map[string]int{}

	var collected []memclient.Memory

	phases := []struct {
		name string
		run  func(context.Context, *Request, int) ([]memclient.Memory, error)
	}{
		{"git", o.gitPhase},
		{"recent", o.recentPhase},
		{"tagged", o.taggedPhase},
		{"fallback", o.fallbackPhase},
		{"cluster", o.clusterPhase},
	}

	for _, phase := range phases {
		if ctx.Err() != nil {
			log.Warn("retrieval deadline hit, stopping early", "phase", phase.name)
			break
		}
		if phase.name == "fallback" && len(collected) >= fallbackFloor {
			continue
		}

		remaining := maxMemories - len(collected)
		if remaining <= 0 && phase.name != "cluster" {
			continue
		}

		fetched, err := phase.run(ctx, &req, remaining)
		if err != nil {
			log.Warn("retrieval phase failed", "phase", phase.name, "error", err)
			continue
		}

		for i := range fetched {
			if deduper.Admit(&fetched[i]) {
				collected = append(collected, fetched[i])
				counts[phase.name]++
			}
		}
	}

	ranked := o.rank(collected, req.Project, req.Message)

	if len(ranked) > maxMemories {
		ranked = ranked[:maxMemories]
	}

	result := &Result{
		Memories:    ranked,
		PhaseCounts: counts,
		Elapsed:     o.now().Sub(started),
	}
	result.ContextBlock = o.format(ranked, req.Options)

	return result, nil
}

/*
gitPhase issues the single highest-weight git query and annotates its hits
with their provenance and boost weight.
*/
func (o *Orchestrator) gitPhase(ctx context.Context, req *Request, _ int) ([]memclient.Memory, error) {
	if !o.cfg.GitAnalysis.Enabled || req.Git == nil {
		return nil, nil
	}

	queries := gitctx.BuildQueries(req.Git, req.Project.Name)
	if len(queries) == 0 {
		return nil, nil
	}
	query := queries[0]

	limit := o.cfg.MemoryService.MaxGitMemories
	if limit <= 0 {
		limit = defaultMaxGitMemories
	}

	memories, err := o.client.Search(ctx, query.Text, limit)
	if err != nil {
		return nil, err
	}

	weight := o.gitWeight(req.Git)
	for i := range memories {
		memories[i].GitContextType = string(query.Type)
		memories[i].GitContextSource = query.Text
		memories[i].GitContextWeight = weight
	}

	return memories, nil
}

func (o *Orchestrator) recentPhase(ctx context.Context, req *Request, remaining int) ([]memclient.Memory, error) {
	ratio := o.cfg.MemoryService.RecentRatio
	if ratio <= 0 {
		ratio = defaultRecentRatio
	}

	limit := int(math.Floor(float64(remaining) * ratio))
	if limit <= 0 {
		return nil, nil
	}

	window := o.cfg.MemoryService.RecentTimeWindow
	if window == "" {
		window = "last-week"
	}

	return o.client.SearchByTime(ctx, o.semanticQuery(req), window, limit)
}

func (o *Orchestrator) taggedPhase(ctx context.Context, req *Request, remaining int) ([]memclient.Memory, error) {
	tags := append([]string{strings.ToLower(req.Project.Name)}, decisionTags...)
	return o.client.SearchByTagAndTime(ctx, tags, tagTimeWindow, remaining)
}

func (o *Orchestrator) fallbackPhase(ctx context.Context, req *Request, remaining int) ([]memclient.Memory, error) {
	window := o.cfg.MemoryService.FallbackTimeWindow
	if window == "" {
		window = clusterTimeWindow
	}

	query := strings.TrimSpace(req.Project.Name + " " + req.Project.Language)

	return o.client.SearchByTime(ctx, query, window, remaining)
}

func (o *Orchestrator) clusterPhase(ctx context.Context, _ *Request, _ int) ([]memclient.Memory, error) {
	fetched, err := o.client.SearchByTagAndTime(ctx, []string{"cluster"}, clusterTimeWindow, maxClusters)
	if err != nil {
		return nil, err
	}

	var clusters []memclient.Memory
	for _, m := range fetched {
		if !m.IsCluster() {
			continue
		}
		clusters = append(clusters, m)
		if len(clusters) >= maxClusters {
			break
		}
	}

	return clusters, nil
}

func (o *Orchestrator) semanticQuery(req *Request) string {
	parts := []string{req.Project.Name}

	if req.Message != "" {
		parts = append(parts, req.Message)
	}
	if req.Project.Git.Branch != "" {
		parts = append(parts, req.Project.Git.Branch)
	}
	if req.Git != nil && len(req.Git.Keywords) > 0 {
		top := req.Git.Keywords
		if len(top) > 4 {
			top = top[:4]
		}
		parts = append(parts, top...)
	}

	return strings.Join(parts, " ")
}

/*
gitWeight returns the configured git boost, damped when the repository has
gone quiet. Staleness damping against the retrieved set happens in rank.
*/
func (o *Orchestrator) gitWeight(gc *gitctx.Context) float64 {
	weight := o.cfg.GitAnalysis.ContextWeight
	if weight <= 1 {
		return 1
	}
	if !o.cfg.GitAnalysis.AdaptiveGitWeight {
		return weight
	}

	return scoring.AdaptGitWeight(weight, scoring.AgeReport{}, len(gc.Commits))
}

func (o *Orchestrator) rank(collected []memclient.Memory, proj *project.Context, message string) []memclient.Memory {
	if len(collected) == 0 {
		return nil
	}

	now := o.now()
	report := scoring.AnalyzeAges(collected, now)

	scoringCfg := o.cfg.MemoryScoring
	if scoringCfg.AutoCalibrate {
		scoringCfg.Weights = scoring.Calibrate(scoringCfg.Weights, report)
	}

	if o.cfg.GitAnalysis.AdaptiveGitWeight && report.MostlyStale {
		for i := range collected {
			if collected[i].GitContextWeight > 1 {
				collected[i].GitContextWeight = scoring.AdaptGitWeight(collected[i].GitContextWeight, report, fallbackFloor)
			}
		}
	}

	scorer := scoring.NewScorer(scoringCfg)
	scorer.SetClock(o.now)

	ranked := scorer.ScoreAll(collected, proj, messageTerms(message))
	scoring.ApplyGitBoost(ranked)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked
}

var termSplitRe = strings.NewReplacer(",", " ", ".", " ", "?", " ", "!", " ")

func messageTerms(message string) []string {
	if message == "" {
		return nil
	}

	var terms []string
	for _, field := range strings.Fields(termSplitRe.Replace(strings.ToLower(message))) {
		if len(field) > 3 {
			terms = append(terms, field)
		}
	}

	return terms
}

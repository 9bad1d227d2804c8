/*
Package consolidate distils a finished session into one stored memory. A
regex sweep pulls topics, decisions, insights, code changes, and next
steps out of the transcript; the rendered summary is posted to the memory
service with session tags, followed by a fire-and-forget quality
evaluation.
*/
package consolidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/project"
	"github.com/theapemachine/recall-go/pkg/trigger"
)

const (
	minSessionLength = 100
	minConfidence    = 0.1

	memoryType = "session-summary"
)

/*
Session is the material handed over at session end.
*/
type Session struct {
	SessionID       string
	Transcript      string
	LastUserMessage string
	Project         *project.Context
}

/*
Consolidator owns session-end storage against one memory client.
*/
type Consolidator struct {
	client memclient.Client
}

func New(client memclient.Client) *Consolidator {
	return &Consolidator{client: client}
}

/*
Consolidate extracts, renders, and stores the session summary, returning
the stored content hash. The #skip override suppresses storage entirely;
#remember bypasses the minimum-length and minimum-confidence gates. An
empty hash with a nil error means the session was judged not worth
storing.
*/
func (c *Consolidator) Consolidate(ctx context.Context, session Session) (string, error) {
	if trigger.HasSkip(session.LastUserMessage) {
		log.Info("session storage suppressed by skip override", "session", session.SessionID)
		return "", nil
	}

	forced := trigger.HasRemember(session.LastUserMessage)

	if !forced && len(strings.TrimSpace(session.Transcript)) < minSessionLength {
		log.Debug("session below minimum length, not stored", "session", session.SessionID)
		return "", nil
	}

	summary := Extract(session.Transcript)
	if forced && summary.Confidence < 1 {
		summary.Confidence = 1
	}

	if !forced && summary.Confidence < minConfidence {
		log.Debug("session confidence too low, not stored",
			"session", session.SessionID,
			"confidence", summary.Confidence,
		)
		return "", nil
	}

	hash, err := c.client.Store(ctx, memclient.StoreRequest{
		Content:    Render(summary, session.Project),
		Tags:       Tags(summary, session.Project),
		MemoryType: memoryType,
		Metadata: map[string]any{
			"session_id": session.SessionID,
			"confidence": summary.Confidence,
		},
	})
	if err != nil {
		return "", err
	}

	c.client.EvaluateQuality(hash)

	log.Info("session consolidated",
		"session", session.SessionID,
		"hash", hash,
		"confidence", fmt.Sprintf("%.2f", summary.Confidence),
	)

	return hash, nil
}

/*
Render produces the markdown summary stored as memory content.
*/
func Render(summary Summary, proj *project.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session summary: %s\n", proj.Name)

	if len(summary.Topics) > 0 {
		fmt.Fprintf(&b, "\nTopics: %s\n", strings.Join(summary.Topics, ", "))
	}

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	section("Decisions", summary.Decisions)
	section("Insights", summary.Insights)
	section("Code changes", summary.CodeChanges)
	section("Next steps", summary.NextSteps)

	return b.String()
}

/*
Tags builds the tag set for the stored summary: the fixed session tags,
project identity, top topics, and the confidence bucket.
*/
func Tags(summary Summary, proj *project.Context) []string {
	tags := []string{
		"project-assistant-session",
		"session-consolidation",
		strings.ToLower(proj.Name),
	}

	if proj.Language != "" {
		tags = append(tags, "language:"+strings.ToLower(proj.Language))
	}

	tags = append(tags, summary.Topics...)
	tags = append(tags, fmt.Sprintf("confidence:%d%%", int(summary.Confidence*100)))

	return tags
}

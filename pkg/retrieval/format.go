package retrieval

import (
	"fmt"
	"strings"

	"github.com/theapemachine/recall-go/pkg/memclient"
)

const (
	defaultBanner   = "Relevant context from previous sessions"
	maxContentChars = 600
)

/*
format renders the ranked memories as the markdown block handed to the
host's injection capability. Empty input produces an empty block so the
caller can skip injection entirely.
*/
func (o *Orchestrator) format(memories []memclient.Memory, opts Options) string {
	if len(memories) == 0 {
		return ""
	}

	banner := opts.Banner
	if banner == "" {
		banner = defaultBanner
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", banner)

	for i := range memories {
		m := &memories[i]

		b.WriteString("- ")
		if m.IsCluster() {
			b.WriteString("[cluster] ")
		}
		b.WriteString(truncate(m.Content, maxContentChars))

		var notes []string
		if date := m.CreatedAtISO; date != "" {
			notes = append(notes, date)
		} else if m.CreatedAt > 0 {
			notes = append(notes, m.CreatedTime().Format("2006-01-02"))
		}
		if opts.ShowScores || o.cfg.Output.ShowScoringBreakdown {
			if m.WasBoosted {
				notes = append(notes, fmt.Sprintf("score %.2f (boosted from %.2f)", m.RelevanceScore, m.OriginalScore))
			} else {
				notes = append(notes, fmt.Sprintf("score %.2f", m.RelevanceScore))
			}
		}
		if o.cfg.Output.ShowStorageSource && m.GitContextType != "" {
			notes = append(notes, "via "+m.GitContextType)
		}

		if len(notes) > 0 {
			fmt.Fprintf(&b, " _(%s)_", strings.Join(notes, ", "))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if len(s) <= limit {
		return s
	}

	cut := s[:limit]
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}

	return cut + "…"
}

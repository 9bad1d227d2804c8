package consolidate

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxDecisions   = 5
	maxInsights    = 5
	maxCodeChanges = 5
	maxNextSteps   = 5
	maxTopics      = 5

	// Each extracted item is clipped so one rambling sentence cannot
	// dominate the stored summary.
	maxItemChars = 160
)

// topicCategories maps a category label to the keywords that vote for it.
var topicCategories = map[string][]string{
	"implementation": {"implement", "build", "create", "add", "write", "develop"},
	"debugging":      {"debug", "fix", "bug", "error", "issue", "crash", "broken"},
	"architecture":   {"architecture", "design", "structure", "pattern", "refactor", "module"},
	"performance":    {"performance", "latency", "slow", "optimize", "cache", "memory"},
	"testing":        {"test", "coverage", "assert", "mock", "regression"},
	"configuration":  {"config", "setting", "environment", "deploy", "setup"},
	"database":       {"database", "schema", "query", "migration", "index", "sql"},
	"security":       {"security", "auth", "token", "permission", "vulnerability", "credential"},
}

var (
	decisionRe = regexp.MustCompile(`(?i)\b(?:decided to|decided on|chose|went with|settled on|agreed (?:to|on)|we(?:'ll| will) use)\s+([^.!?\n]{3,})`)
	insightRe  = regexp.MustCompile(`(?i)\b(?:learned that|realized|discovered|found out|turns out|the key insight)\s+([^.!?\n]{3,})`)
	codeRe     = regexp.MustCompile(`(?i)\b(?:implemented|refactored|fixed|added|created|updated|removed|renamed)\s+((?:the |a |an )?[^.!?\n]{3,})`)
	nextRe     = regexp.MustCompile(`(?i)\b(?:TODO:?|next step[s]?:?|still need to|need to|will continue|remaining:)\s+([^.!?\n]{3,})`)
	wordRe     = regexp.MustCompile(`[a-z][a-z0-9_-]+`)
)

/*
Summary is the structured distillation of one finished session.
*/
type Summary struct {
	Topics      []string
	Decisions   []string
	Insights    []string
	CodeChanges []string
	NextSteps   []string
	Confidence  float64
}

// Extracted counts everything the sweep pulled out of the transcript.
func (s *Summary) Extracted() int {
	return len(s.Topics) + len(s.Decisions) + len(s.Insights) +
		len(s.CodeChanges) + len(s.NextSteps)
}

/*
Extract sweeps the transcript with the category regexes and derives a
confidence from how much material turned up.
*/
func Extract(transcript string) Summary {
	summary := Summary{
		Topics:      extractTopics(transcript),
		Decisions:   captures(decisionRe, transcript, maxDecisions),
		Insights:    captures(insightRe, transcript, maxInsights),
		CodeChanges: captures(codeRe, transcript, maxCodeChanges),
		NextSteps:   captures(nextRe, transcript, maxNextSteps),
	}

	summary.Confidence = confidence(summary.Extracted())

	return summary
}

func confidence(extracted int) float64 {
	c := float64(extracted) / 10.0
	if c > 1 {
		c = 1
	}
	return c
}

func captures(re *regexp.Regexp, transcript string, limit int) []string {
	var items []string
	seen := map[string]bool{}

	for _, match := range re.FindAllStringSubmatch(transcript, -1) {
		item := strings.TrimSpace(match[1])
		if len(item) > maxItemChars {
			item = item[:maxItemChars]
		}

		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true

		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}

	return items
}

func extractTopics(transcript string) []string {
	words := map[string]int{}
	for _, word := range wordRe.FindAllString(strings.ToLower(transcript), -1) {
		words[word]++
	}

	votes := map[string]int{}
	for category, keywords := range topicCategories {
		for _, keyword := range keywords {
			for word, count := range words {
				if strings.HasPrefix(word, keyword) {
					votes[category] += count
				}
			}
		}
	}

	type vote struct {
		category string
		count    int
	}

	var ranked []vote
	for category, count := range votes {
		if count > 0 {
			ranked = append(ranked, vote{category, count})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].category < ranked[j].category
	})

	var topics []string
	for _, v := range ranked {
		topics = append(topics, v.category)
		if len(topics) >= maxTopics {
			break
		}
	}

	return topics
}

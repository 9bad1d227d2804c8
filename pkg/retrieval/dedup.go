package retrieval

import (
	"regexp"
	"strings"

	"github.com/theapemachine/recall-go/pkg/memclient"
)

var dedupWordRe = regexp.MustCompile(`[a-z0-9]+`)

/*
Deduper filters near-duplicate memories by normalized word-set overlap.
Very short contents fall below the length floor and are never treated as
duplicates of each other; compressed clusters are exempt entirely.
*/
type Deduper struct {
	threshold float64
	minLength int
	seen      map[string]bool
	wordSets  []map[string]bool
}

func NewDeduper(threshold float64, minLength int) *Deduper {
	if threshold <= 0 {
		threshold = 0.8
	}
	if minLength <= 0 {
		minLength = 20
	}

	return &Deduper{
		threshold: threshold,
		minLength: minLength,
		seen:      map[string]bool{},
	}
}

/*
Admit reports whether the memory is new against everything admitted so far,
and records it when it is.
*/
func (d *Deduper) Admit(m *memclient.Memory) bool {
	if m.ContentHash != "" {
		if d.seen[m.ContentHash] {
			return false
		}
		d.seen[m.ContentHash] = true
	}

	if m.IsCluster() {
		return true
	}

	words := wordSet(m.Content)

	if len(strings.TrimSpace(m.Content)) >= d.minLength {
		for _, prior := range d.wordSets {
			if jaccard(words, prior) > d.threshold {
				return false
			}
		}
	}

	d.wordSets = append(d.wordSets, words)

	return true
}

func wordSet(content string) map[string]bool {
	set := map[string]bool{}
	for _, word := range dedupWordRe.FindAllString(strings.ToLower(content), -1) {
		set[word] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for word := range a {
		if b[word] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

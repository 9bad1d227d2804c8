package gitctx

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxKeywords       = 20
	maxThemes         = 12
	maxFilePatterns   = 12
	maxRecentMessages = 5
)

// actionVerbs maps commit-subject verbs to a development theme.
var actionVerbs = map[string]string{
	"feat":      "feature-development",
	"feature":   "feature-development",
	"add":       "feature-development",
	"implement": "feature-development",
	"fix":       "bug-fixes",
	"bugfix":    "bug-fixes",
	"patch":     "bug-fixes",
	"resolve":   "bug-fixes",
	"refactor":  "refactoring",
	"cleanup":   "refactoring",
	"rework":    "refactoring",
	"test":      "testing",
	"tests":     "testing",
	"docs":      "documentation",
	"document":  "documentation",
	"perf":      "performance",
	"optimize":  "performance",
	"speed":     "performance",
	"security":  "security",
	"harden":    "security",
	"upgrade":   "maintenance",
	"update":    "maintenance",
	"bump":      "maintenance",
	"chore":     "maintenance",
	"deploy":    "deployment",
	"release":   "deployment",
	"ci":        "deployment",
}

// technicalTerms is the curated vocabulary mined from commit subjects and
// changelog bodies.
var technicalTerms = map[string]struct{}{
	"api":            {},
	"auth":           {},
	"authentication": {},
	"cache":          {},
	"cli":            {},
	"client":         {},
	"config":         {},
	"database":       {},
	"docker":         {},
	"endpoint":       {},
	"handler":        {},
	"index":          {},
	"logging":        {},
	"memory":         {},
	"middleware":     {},
	"migration":      {},
	"model":          {},
	"parser":         {},
	"pipeline":       {},
	"protocol":       {},
	"query":          {},
	"retrieval":      {},
	"router":         {},
	"schema":         {},
	"server":         {},
	"session":        {},
	"storage":        {},
	"timeout":        {},
	"token":          {},
	"transport":      {},
	"validation":     {},
	"worker":         {},
}

var (
	semverRe = regexp.MustCompile(`\bv?\d+\.\d+\.\d+[0-9A-Za-z.\-+]*\b`)
	wordRe   = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_-]+`)
)

type derived struct {
	Keywords       []string
	Themes         []string
	FilePatterns   []string
	RecentMessages []string
}

// deriveKeywords mines commit subjects, changed files, and changelog bodies
// for query material.
func deriveKeywords(commits []Commit, changelog []ChangelogEntry) derived {
	var out derived

	keywordSet := newOrderedSet(maxKeywords)
	themeSet := newOrderedSet(maxThemes)
	fileSet := newOrderedSet(maxFilePatterns)

	var texts []string
	for _, c := range commits {
		texts = append(texts, c.Message)
		if len(out.RecentMessages) < maxRecentMessages {
			out.RecentMessages = append(out.RecentMessages, c.Message)
		}
	}
	for _, entry := range changelog {
		texts = append(texts, entry.Changes...)
	}

	for _, text := range texts {
		lower := strings.ToLower(text)

		for _, word := range wordRe.FindAllString(lower, -1) {
			if theme, ok := actionVerbs[word]; ok {
				keywordSet.add(word)
				themeSet.add(theme)
			}
			if _, ok := technicalTerms[word]; ok {
				keywordSet.add(word)
				themeSet.add(word)
			}
		}

		for _, version := range semverRe.FindAllString(text, -1) {
			keywordSet.add(version)
		}
	}

	for _, c := range commits {
		for _, file := range c.ChangedFiles {
			base := filepath.Base(file)
			fileSet.add(base)

			if dir := topLevelDir(file); dir != "" {
				fileSet.add(dir + "/")
			}
		}
	}

	out.Keywords = keywordSet.values
	out.Themes = themeSet.values
	out.FilePatterns = fileSet.values

	return out
}

func topLevelDir(path string) string {
	path = filepath.ToSlash(path)
	if idx := strings.IndexByte(path, '/'); idx > 0 {
		return path[:idx]
	}
	return ""
}

type orderedSet struct {
	values []string
	seen   map[string]struct{}
	limit  int
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, limit: limit}
}

func (s *orderedSet) add(v string) {
	if len(s.values) >= s.limit {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

package gitctx

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	maxChangelogVersions = 3
	changelogMaxAge      = 30 * 24 * time.Hour
)

/*
ChangelogEntry is one parsed version block from the project changelog.
*/
type ChangelogEntry struct {
	Version string
	Date    time.Time
	Dated   bool
	Changes []string
}

var changelogCandidates = []string{
	"CHANGELOG.md",
	"changelog.md",
	"HISTORY.md",
	"RELEASES.md",
}

var (
	versionHeadingRe = regexp.MustCompile(`^##\s*\[?v?(\d+\.\d+\.\d+[^\]\s]*)\]?(?:\s*[-–]\s*(\d{4}-\d{2}-\d{2}))?`)
	bulletRe         = regexp.MustCompile(`^\s*[-*+]\s+(.*)`)
)

/*
Changelog locates and parses the project changelog. At most the three most
recent versions are returned, filtered to those dated within the last 30
days or carrying no date at all. Parse failures return nil.
*/
func (a *Analyzer) Changelog() []ChangelogEntry {
	path := a.findChangelog()
	if path == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	entries := parseChangelog(file, a.now())

	if len(entries) > maxChangelogVersions {
		entries = entries[:maxChangelogVersions]
	}

	return entries
}

func (a *Analyzer) findChangelog() string {
	for _, name := range changelogCandidates {
		path := filepath.Join(a.Path, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func parseChangelog(file *os.File, now time.Time) []ChangelogEntry {
	var entries []ChangelogEntry
	var current *ChangelogEntry

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if m := versionHeadingRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				entries = appendEntry(entries, *current, now)
			}

			entry := ChangelogEntry{Version: m[1]}
			if m[2] != "" {
				if date, err := time.Parse("2006-01-02", m[2]); err == nil {
					entry.Date = date
					entry.Dated = true
				}
			}
			current = &entry
			continue
		}

		if current == nil {
			continue
		}

		// Subsection headings like "### Added" only group bullets.
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			current.Changes = append(current.Changes, strings.TrimSpace(m[1]))
		}
	}

	if current != nil {
		entries = appendEntry(entries, *current, now)
	}

	return entries
}

func appendEntry(entries []ChangelogEntry, entry ChangelogEntry, now time.Time) []ChangelogEntry {
	if entry.Dated && now.Sub(entry.Date) > changelogMaxAge {
		return entries
	}
	return append(entries, entry)
}

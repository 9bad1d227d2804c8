/*
Package gitctx extracts development context from the working directory's git
repository: recent commits, the parsed changelog, and derived keywords used
to seed memory queries. Every operation is fail-soft; a missing repository
or a parse failure yields empty results, never an error that aborts the
calling event.
*/
package gitctx

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	defaultLookbackDays = 14
	defaultMaxCommits   = 20
	changedFilesForTop  = 5
)

/*
Commit is one recent commit with its derived fields.
*/
type Commit struct {
	Hash         string
	ShortHash    string
	Author       string
	Date         time.Time
	Message      string
	ChangedFiles []string
	DaysAgo      int
}

/*
Info is the lightweight "where am I" view of the repository.
*/
type Info struct {
	IsRepo     bool
	Branch     string
	LastCommit string
	Dirty      bool
}

/*
Context bundles everything the analyzer derives for one event. It is built
fresh per event and immutable afterwards.
*/
type Context struct {
	Info           Info
	Commits        []Commit
	Changelog      []ChangelogEntry
	Keywords       []string
	Themes         []string
	FilePatterns   []string
	RecentMessages []string
}

/*
Analyzer reads a repository rooted at or above Path.
*/
type Analyzer struct {
	Path         string
	LookbackDays int
	MaxCommits   int
	now          func() time.Time
}

func NewAnalyzer(path string, lookbackDays, maxCommits int) *Analyzer {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	if maxCommits <= 0 {
		maxCommits = defaultMaxCommits
	}

	return &Analyzer{
		Path:         path,
		LookbackDays: lookbackDays,
		MaxCommits:   maxCommits,
		now:          time.Now,
	}
}

/*
Analyze builds the full git context. Partial failures degrade to empty
sections.
*/
func (a *Analyzer) Analyze(ctx context.Context) *Context {
	gc := &Context{
		Info:      a.CurrentInfo(),
		Changelog: a.Changelog(),
	}

	gc.Commits = a.RecentCommits(ctx)

	keywords := deriveKeywords(gc.Commits, gc.Changelog)
	gc.Keywords = keywords.Keywords
	gc.Themes = keywords.Themes
	gc.FilePatterns = keywords.FilePatterns
	gc.RecentMessages = keywords.RecentMessages

	return gc
}

/*
RecentCommits returns up to MaxCommits non-merge commits from the lookback
window, oldest last. Changed files are resolved for the five most recent.
*/
func (a *Analyzer) RecentCommits(ctx context.Context) []Commit {
	repo, err := a.open()
	if err != nil {
		return nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil
	}

	since := a.now().AddDate(0, 0, -a.LookbackDays)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Since: &since})
	if err != nil {
		log.Debug("git log failed", "error", err)
		return nil
	}
	defer iter.Close()

	var commits []Commit

	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(commits) >= a.MaxCommits {
			return storer.ErrStop
		}
		if c.NumParents() > 1 {
			// Merge commits carry no signal of their own.
			return nil
		}

		hash := c.Hash.String()
		commit := Commit{
			Hash:      hash,
			ShortHash: hash[:7],
			Author:    c.Author.Name,
			Date:      c.Author.When,
			Message:   subjectOf(c.Message),
			DaysAgo:   int(a.now().Sub(c.Author.When).Hours() / 24),
		}

		if len(commits) < changedFilesForTop {
			commit.ChangedFiles = changedFiles(c)
		}

		commits = append(commits, commit)
		return nil
	})
	if err != nil && err != storer.ErrStop {
		log.Debug("git log iteration stopped", "error", err)
	}

	return commits
}

/*
CurrentInfo returns the branch, last commit subject, and dirty flag.
*/
func (a *Analyzer) CurrentInfo() Info {
	repo, err := a.open()
	if err != nil {
		return Info{}
	}

	info := Info{IsRepo: true}

	head, err := repo.Head()
	if err != nil {
		return info
	}
	info.Branch = head.Name().Short()

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		info.LastCommit = subjectOf(commit.Message)
	}

	if worktree, err := repo.Worktree(); err == nil {
		if status, err := worktree.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info
}

func (a *Analyzer) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(a.Path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		log.Debug("not a git repository", "path", a.Path)
		return nil, err
	}
	return repo, nil
}

func changedFiles(c *object.Commit) []string {
	stats, err := c.Stats()
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(stats))
	for _, s := range stats {
		files = append(files, s.Name)
	}

	return files
}

func subjectOf(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}

package gitctx

import "strings"

/*
QueryType tags a git-derived memory query so retrieved memories can be
annotated with their provenance.
*/
type QueryType string

const (
	QueryRecentDevelopment QueryType = "recent-development"
	QueryFileContext       QueryType = "file-context"
	QueryThemeContext      QueryType = "theme-context"
	QueryCommitContext     QueryType = "commit-context"
)

/*
Query is one parameterized memory-service query derived from git context.
*/
type Query struct {
	Type   QueryType
	Text   string
	Weight float64
}

/*
BuildQueries produces up to four weighted queries from the git context.
Queries with no material are omitted; the result is ordered by weight,
highest first.
*/
func BuildQueries(gc *Context, projectName string) []Query {
	if gc == nil {
		return nil
	}

	var queries []Query

	if len(gc.Keywords) > 0 {
		queries = append(queries, Query{
			Type:   QueryRecentDevelopment,
			Text:   projectName + " recent development " + strings.Join(topN(gc.Keywords, 6), " "),
			Weight: 1.0,
		})
	}

	if len(gc.RecentMessages) > 0 {
		queries = append(queries, Query{
			Type:   QueryCommitContext,
			Text:   projectName + " " + strings.Join(topN(gc.RecentMessages, 3), " "),
			Weight: 0.9,
		})
	}

	if len(gc.FilePatterns) > 0 {
		queries = append(queries, Query{
			Type:   QueryFileContext,
			Text:   projectName + " files " + strings.Join(topN(gc.FilePatterns, 6), " "),
			Weight: 0.8,
		})
	}

	if len(gc.Themes) > 0 {
		queries = append(queries, Query{
			Type:   QueryThemeContext,
			Text:   projectName + " " + strings.Join(topN(gc.Themes, 5), " "),
			Weight: 0.6,
		})
	}

	return queries
}

func topN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

package monitor

import "regexp"

// technicalVocabulary is the fixed term set used for key-phrase extraction.
// Single words only; phrases are reconstructed from adjacent hits.
var technicalVocabulary = map[string]struct{}{
	"api":            {},
	"architecture":   {},
	"authentication": {},
	"authorization":  {},
	"backend":        {},
	"build":          {},
	"cache":          {},
	"component":      {},
	"components":     {},
	"config":         {},
	"container":      {},
	"database":       {},
	"deploy":         {},
	"deployment":     {},
	"design":         {},
	"docker":         {},
	"endpoint":       {},
	"framework":      {},
	"frontend":       {},
	"golang":         {},
	"graphql":        {},
	"index":          {},
	"javascript":     {},
	"kubernetes":     {},
	"management":     {},
	"middleware":     {},
	"migration":      {},
	"model":          {},
	"module":         {},
	"monitoring":     {},
	"oauth":          {},
	"performance":    {},
	"pipeline":       {},
	"python":         {},
	"query":          {},
	"queue":          {},
	"react":          {},
	"refactor":       {},
	"rest":           {},
	"routing":        {},
	"schema":         {},
	"security":       {},
	"server":         {},
	"service":        {},
	"session":        {},
	"state":          {},
	"storage":        {},
	"testing":        {},
	"token":          {},
	"typescript":     {},
	"validation":     {},
	"websocket":      {},
}

var (
	memoryRequestRe = regexp.MustCompile(`(?i)\b(what\s+did\s+we|remind\s+me|as\s+we\s+discussed|how\s+did\s+we)\b`)
	questionOpenRe  = regexp.MustCompile(`(?i)^\s*(what|why|how|when|where|which|who|can|could|should|would|do|does|did|is|are)\b|\?\s*$`)
	pastWorkRe      = regexp.MustCompile(`(?i)\b(last\s+time|previously|earlier|before|we\s+(did|discussed|decided|built|implemented))\b`)
	tokenRe         = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_-]+`)
)

package patterns

import "regexp"

/*
InstantPattern is a literal regular expression with a base confidence,
grouped into a category. The instant tier must answer within its latency
budget, so these favour precision over recall.
*/
type InstantPattern struct {
	Category    string
	Description string
	Regex       *regexp.Regexp
	Confidence  float64
}

/*
FastPattern is a regex annotated with the contextual tags that must appear
in the caller's context for the boost to apply.
*/
type FastPattern struct {
	Category     string
	Description  string
	Regex        *regexp.Regexp
	Confidence   float64
	RequiredTags []string
}

/*
PhraseBag is an intensive-tier semantic pattern: a set of key phrases whose
coverage in the message determines the match strength.
*/
type PhraseBag struct {
	Category   string
	Phrases    []string
	Confidence float64
}

const (
	CategoryExplicitMemoryRequest = "explicitMemoryRequests"
	CategoryPastWorkReference     = "pastWorkReferences"
	CategoryQuestionPattern       = "questionPatterns"
	CategoryTechnicalDiscussion   = "technicalDiscussions"
	CategorySecurityTopic         = "securityTopics"
	CategoryDataTopic             = "dataTopics"
	CategoryWorkContinuation      = "workContinuation"
	CategoryTroubleshooting       = "troubleshooting"
	CategoryProjectContinuity     = "projectContinuity"
	CategoryKnowledgeTransfer     = "knowledgeTransfer"
)

var instantPatterns = []InstantPattern{
	{
		Category:    CategoryExplicitMemoryRequest,
		Description: "direct request to recall a past decision or discussion",
		Regex:       regexp.MustCompile(`(?i)\bwhat\s+did\s+we\s+(decide|discuss|choose|agree|do)\b`),
		Confidence:  0.95,
	},
	{
		Category:    CategoryExplicitMemoryRequest,
		Description: "remind-me style request",
		Regex:       regexp.MustCompile(`(?i)\bremind\s+me\b`),
		Confidence:  0.9,
	},
	{
		Category:    CategoryExplicitMemoryRequest,
		Description: "recall of an earlier approach",
		Regex:       regexp.MustCompile(`(?i)\bhow\s+did\s+we\s+(implement|solve|handle|fix|configure)\b`),
		Confidence:  0.9,
	},
	{
		Category:    CategoryExplicitMemoryRequest,
		Description: "reference to prior conversation",
		Regex:       regexp.MustCompile(`(?i)\b(as|like)\s+we\s+(discussed|mentioned|talked about)\b`),
		Confidence:  0.85,
	},
	{
		Category:    CategoryPastWorkReference,
		Description: "reference to previous work",
		Regex:       regexp.MustCompile(`(?i)\b(last\s+time|previously|earlier|before)\b.*\b(we|i)\b`),
		Confidence:  0.7,
	},
	{
		Category:    CategoryPastWorkReference,
		Description: "continuation of previous work",
		Regex:       regexp.MustCompile(`(?i)\b(continue|continuing|resume|pick\s+up)\s+(with|from|where)\b`),
		Confidence:  0.75,
	},
	{
		Category:    CategoryQuestionPattern,
		Description: "why-question about existing state",
		Regex:       regexp.MustCompile(`(?i)\bwhy\s+(did|do|does|is|was|are)\b`),
		Confidence:  0.6,
	},
	{
		Category:    CategoryQuestionPattern,
		Description: "what-happened question",
		Regex:       regexp.MustCompile(`(?i)\bwhat\s+(happened|changed|went wrong)\b`),
		Confidence:  0.65,
	},
}

var fastPatterns = []FastPattern{
	{
		Category:     CategoryTechnicalDiscussion,
		Description:  "architecture or design discussion",
		Regex:        regexp.MustCompile(`(?i)\b(architecture|design\s+pattern|approach|strategy|structure)\b`),
		Confidence:   0.5,
		RequiredTags: []string{"technical"},
	},
	{
		Category:     CategorySecurityTopic,
		Description:  "authentication or security topic",
		Regex:        regexp.MustCompile(`(?i)\b(auth|authentication|authorization|security|token|oauth|jwt)\b`),
		Confidence:   0.55,
		RequiredTags: []string{"security", "technical"},
	},
	{
		Category:     CategoryDataTopic,
		Description:  "database or schema topic",
		Regex:        regexp.MustCompile(`(?i)\b(database|schema|migration|query|index|sql)\b`),
		Confidence:   0.5,
		RequiredTags: []string{"data", "technical"},
	},
	{
		Category:     CategoryWorkContinuation,
		Description:  "continuation of in-flight work",
		Regex:        regexp.MustCompile(`(?i)\b(next\s+step|todo|remaining|unfinished|left\s+off)\b`),
		Confidence:   0.55,
		RequiredTags: []string{"continuation"},
	},
	{
		Category:     CategoryTroubleshooting,
		Description:  "debugging or failure investigation",
		Regex:        regexp.MustCompile(`(?i)\b(error|bug|failing|broken|crash|debug|investigate)\b`),
		Confidence:   0.5,
		RequiredTags: []string{"troubleshooting", "technical"},
	},
}

var phraseBags = []PhraseBag{
	{
		Category:   CategoryProjectContinuity,
		Confidence: 0.7,
		Phrases: []string{
			"where were we",
			"current state of the project",
			"status of the work",
			"progress so far",
			"what is left to do",
		},
	},
	{
		Category:   CategoryKnowledgeTransfer,
		Confidence: 0.65,
		Phrases: []string{
			"explain the reasoning behind",
			"context for this decision",
			"background on the implementation",
			"history of this module",
			"why it was built this way",
		},
	},
}

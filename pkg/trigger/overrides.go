package trigger

import "regexp"

// Literal user overrides. Word-bounded so "#skipping" does not count.
var (
	skipRe     = regexp.MustCompile(`(?i)(^|\s)#skip(\s|$|[^\w])`)
	rememberRe = regexp.MustCompile(`(?i)(^|\s)#remember(\s|$|[^\w])`)
)

/*
HasSkip reports whether the message carries the #skip override, which
bypasses analysis and storage entirely.
*/
func HasSkip(message string) bool { return skipRe.MatchString(message) }

/*
HasRemember reports whether the message carries the #remember override,
which forces a full-confidence trigger and resets the cooldown.
*/
func HasRemember(message string) bool { return rememberRe.MatchString(message) }

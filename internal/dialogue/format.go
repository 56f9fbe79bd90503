package dialogue

import (
	"regexp"
	"strings"
)

// Responses are delivered over channels that render no markdown, so model
// output is flattened to plain prose: emphasis markers stripped, list
// items and line breaks collapsed into sentence breaks.
var (
	boldRe         = regexp.MustCompile(`\*\*(.*?)\*\*`)
	asteriskRe     = regexp.MustCompile(`\*+`)
	lineBreakRe    = regexp.MustCompile(`\s*[\r\n]+\s*(?:[-•]\s*)?`)
	inlineBulletRe = regexp.MustCompile(`\s*•\s*`)
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	spaceStopRe    = regexp.MustCompile(`\s+([.,!?;:])`)
	punctRunRe     = regexp.MustCompile(`[,:;]+\s*\.`)
	doubleStopRe   = regexp.MustCompile(`\.(\s*\.)+`)
	leadingStopRe  = regexp.MustCompile(`^[.,\s]+`)
)

// CleanResponse flattens markdown-ish model output into a single plain
// paragraph ending in terminal punctuation. It is idempotent: cleaning an
// already-clean string changes nothing, so persisted responses can be
// cleaned again on replay without drifting.
func CleanResponse(s string) string {
	s = boldRe.ReplaceAllString(s, "$1")
	s = asteriskRe.ReplaceAllString(s, "")
	s = lineBreakRe.ReplaceAllString(s, ". ")
	s = inlineBulletRe.ReplaceAllString(s, ". ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = spaceStopRe.ReplaceAllString(s, "$1")
	s = punctRunRe.ReplaceAllString(s, ".")
	s = doubleStopRe.ReplaceAllString(s, ".")
	s = leadingStopRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// A trailing connector would combine with the appended period into a
	// ",."-style run that the next cleaning pass would collapse, so drop
	// it before terminating the sentence.
	s = strings.TrimRight(s, ",:; ")

	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s[len(s)-1:], ".!?") {
		s += "."
	}
	return s
}

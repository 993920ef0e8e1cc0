package profiling

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/moneymind/internal/user"
)

var (
	numberPattern = regexp.MustCompile(`\d+`)
	yesPattern    = regexp.MustCompile(`\byes\b`)
	noPattern     = regexp.MustCompile(`\bno\b`)
)

// Match maps free text onto one of the question's canonical options, trying
// options in declared order. Matching is case-insensitive: an option matches
// when its text appears in the input, except bare "Yes"/"No" which must appear
// as whole words. Options carrying a percentage additionally need one of their
// numbers to appear in the input.
func (q Question) Match(input string) (string, bool) {
	lower := strings.ToLower(input)

	for _, option := range q.Options {
		if !optionMentioned(option, lower) {
			continue
		}
		if strings.Contains(option, "%") && !numberMentioned(option, lower) {
			continue
		}
		return option, true
	}
	return "", false
}

func optionMentioned(option, lowerInput string) bool {
	switch option {
	case user.AnswerYes:
		return yesPattern.MatchString(lowerInput)
	case user.AnswerNo:
		return noPattern.MatchString(lowerInput)
	default:
		return strings.Contains(lowerInput, strings.ToLower(option))
	}
}

// numberMentioned strips %, < and >, splits the option on '-' and checks
// whether any numeric token from the pieces appears in the input.
func numberMentioned(option, lowerInput string) bool {
	cleaned := strings.NewReplacer("%", "", "<", "", ">", "").Replace(option)
	for _, part := range strings.Split(cleaned, "-") {
		for _, num := range numberPattern.FindAllString(part, -1) {
			if strings.Contains(lowerInput, num) {
				return true
			}
		}
	}
	return false
}

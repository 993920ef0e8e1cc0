package intent

import "strings"

// Rule is one keyword predicate. Rules are evaluated in order and the first
// match decides the intent.
type Rule struct {
	Name   string
	Match  func(lower string) bool
	Intent Intent
}

func anyOf(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// DefaultRules returns the keyword tier. Question phrasing wins over news,
// news over portfolio, portfolio over profile.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "question",
			Match:  anyOf("what is", "explain", "how does", "?", "tell me about"),
			Intent: QnA,
		},
		{
			Name:   "news",
			Match:  anyOf("news", "update on", "market", "stock price"),
			Intent: NewsRequest,
		},
		{
			Name:   "portfolio",
			Match:  anyOf("portfolio", "suggest investment", "asset allocation", "adjust portfolio"),
			Intent: PortfolioRequest,
		},
		{
			Name:   "profile",
			Match:  anyOf("my profile", "risk tolerance", "update my income"),
			Intent: ProfileUpdate,
		},
	}
}

// MatchRules runs rules against text and returns the first matching rule
func MatchRules(rules []Rule, text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Match(lower) {
			return r, true
		}
	}
	return Rule{}, false
}

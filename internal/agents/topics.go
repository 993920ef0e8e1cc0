package agents

import (
	"regexp"
	"strings"
	"unicode"
)

var qnaKeywords = []string{
	"mutual fund", "stock", "market", "tax", "loan", "investment", "sip", "ipo",
	"crypto", "insurance", "budget", "saving", "fd", "ppf", "nps", "gold",
}

// QnATopics returns the finance keywords found in question, capitalised.
// Without a keyword the last two words stand in as the topic.
func QnATopics(question string) []string {
	lower := strings.ToLower(question)
	var topics []string
	for _, kw := range qnaKeywords {
		if strings.Contains(lower, kw) {
			topics = append(topics, capitalize(kw))
		}
	}
	if len(topics) > 0 {
		return topics
	}

	words := strings.Fields(question)
	if len(words) == 0 {
		return nil
	}
	return []string{capitalize(strings.Join(lastN(words, 2), " "))}
}

// capitalize upper-cases the first character and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var (
	newsAboutPattern = regexp.MustCompile(`(?i)(?:news|update)\s+(?:about|on|for)\s+(.+)`)
	newsWords        = map[string]bool{
		"gold": true, "silver": true, "market": true, "ipo": true, "rbi": true, "nifty": true,
		"sensex": true, "stock": true, "stocks": true, "bank": true, "banks": true, "index": true, "indices": true,
	}
)

const (
	generalNewsTopic  = "General financial topic"
	fallbackNewsTopic = "General financial news"
)

// NewsTopic names what a news request is about, for logging and preferences
func NewsTopic(request string) string {
	topic := ""
	if m := newsAboutPattern.FindStringSubmatch(request); m != nil {
		topic = trimTopic(m[1])
	} else {
		words := strings.Fields(request)
		var picked []string
		for _, w := range words {
			if isTitle(w) || isUpper(w) || newsWords[strings.ToLower(w)] {
				picked = append(picked, w)
			}
		}
		switch {
		case len(picked) > 0:
			topic = strings.Join(picked, " ")
		case len(words) < 5:
			topic = trimTopic(request)
		default:
			topic = generalNewsTopic
		}
	}
	if topic == "" {
		return fallbackNewsTopic
	}
	return topic
}

func trimTopic(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "?.!,")
}

// isTitle reports a word whose letter runs each start upper-case and
// continue lower-case, e.g. "Infosys" or "Tata-Motors".
func isTitle(w string) bool {
	cased := false
	prevCased := false
	for _, r := range w {
		switch {
		case unicode.IsUpper(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

// isUpper reports a word with at least one letter and no lower-case letters
func isUpper(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

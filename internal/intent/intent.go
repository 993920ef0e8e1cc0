package intent

// Intent is the closed set of routing outcomes for a message
type Intent int

const (
	UnclearGeneral Intent = iota
	QnA
	NewsRequest
	ProfileUpdate
	PortfolioRequest
)

// Agentic lists the intents that dispatch to an agent, in the order they are
// offered to the model.
var Agentic = []Intent{QnA, NewsRequest, ProfileUpdate, PortfolioRequest}

// String returns the category name used in prompts and logs
func (i Intent) String() string {
	switch i {
	case QnA:
		return "Q&A"
	case NewsRequest:
		return "News Request"
	case ProfileUpdate:
		return "Profile Update"
	case PortfolioRequest:
		return "Portfolio Request"
	default:
		return "Unclear/General"
	}
}

// Slug returns a lowercase identifier safe for metric labels and subjects
func (i Intent) Slug() string {
	switch i {
	case QnA:
		return "qna"
	case NewsRequest:
		return "news"
	case ProfileUpdate:
		return "profile"
	case PortfolioRequest:
		return "portfolio"
	default:
		return "unclear"
	}
}

// All returns every intent with UnclearGeneral last
func All() []Intent {
	return append(append([]Intent{}, Agentic...), UnclearGeneral)
}

// ParseIntent maps an exact category name back to its Intent
func ParseIntent(name string) (Intent, bool) {
	for _, i := range All() {
		if i.String() == name {
			return i, true
		}
	}
	return UnclearGeneral, false
}

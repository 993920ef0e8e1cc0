package user

import (
	"fmt"

	"github.com/ajitpratap0/moneymind/internal/validation"
)

// Validate reports structural problems in a stored record
func (r *Record) Validate() error {
	v := validation.NewValidator()

	v.Required("user_id", r.UserID)

	if res, ok := r.Profile.Risk(); ok {
		v.Range("profile.risk_score", res.Score, 0, 100)
		allowed := make([]string, 0, len(RiskCategories))
		for _, c := range RiskCategories {
			allowed = append(allowed, string(c))
		}
		v.OneOf("profile.risk_category", string(res.Category), allowed)
	}

	if pending, ok := r.ConversationState.PendingQuestion(); ok {
		if !pending.Valid() {
			v.AddError("conversation_state.pending_question", fmt.Sprintf("unknown parameter %q", pending))
		}
		if agent, ok := r.ConversationState.LastAgent(); !ok || agent != AgentProfile {
			v.AddError("conversation_state.pending_question", "set while last_agent is not "+string(AgentProfile))
		}
	}

	if has, ok := r.Profile.RiskParameters.Get(HasLoans); ok && has == AnswerNo {
		if lp, _ := r.Profile.RiskParameters.Get(LoanPaymentPercentage); lp != LoanPaymentNotApplicable {
			v.AddError("profile.risk_parameters.loan_payment_percentage", "must be N/A when has_loans is No")
		}
	}

	if len(r.Preferences.NewsInteractionTopics) > MaxNewsTopics {
		v.AddError("preferences.news_interaction_topics", fmt.Sprintf("holds more than %d topics", MaxNewsTopics))
	}

	return v.Err()
}

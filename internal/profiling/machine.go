package profiling

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/risk"
	"github.com/ajitpratap0/moneymind/internal/user"
)

// Replies emitted outside the question prompts
const (
	CorruptedStatePrefix = "There was an issue with the previous question. Let's try again. "
	ScoringFailedReply   = "It seems I have all your answers, but there was an issue calculating the score. Let's try again later or check the inputs."
)

// State is where a record sits in the questionnaire
type State int

const (
	// AwaitingFirstContact: nothing asked yet and no score
	AwaitingFirstContact State = iota
	// AwaitingAnswer: a question is pending
	AwaitingAnswer
	// Scored: every answer collected and a result stored
	Scored
	// Idle: answers partially collected but no question pending, e.g. after
	// the user wandered off to another agent
	Idle
)

func (s State) String() string {
	switch s {
	case AwaitingFirstContact:
		return "awaiting_first_contact"
	case AwaitingAnswer:
		return "awaiting_answer"
	case Scored:
		return "scored"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Machine drives the ten-question risk questionnaire. It holds no per-user
// state; everything lives on the record passed to Advance.
type Machine struct {
	log zerolog.Logger
}

// NewMachine creates a questionnaire driver
func NewMachine() *Machine {
	return &Machine{
		log: log.With().Str("component", "profiling").Logger(),
	}
}

// StateOf reports the questionnaire state of rec
func (m *Machine) StateOf(rec *user.Record) State {
	if rec.ConversationState.AwaitingProfileAnswer() {
		return AwaitingAnswer
	}
	if _, ok := rec.Profile.Risk(); ok {
		return Scored
	}
	if len(rec.Profile.RiskParameters) == 0 {
		return AwaitingFirstContact
	}
	return Idle
}

// Advance consumes one turn. input is nil when the flow is started
// proactively, for example after a portfolio request without a profile. rec
// is updated in place and the reply text returned.
func (m *Machine) Advance(ctx context.Context, input *string, rec *user.Record) string {
	logger := m.log.With().Str("user_id", rec.UserID).Logger()
	reply := ""

	if pending, ok := rec.ConversationState.PendingQuestion(); ok && input != nil {
		q, known := QuestionFor(pending)
		if !known {
			logger.Error().
				Str("pending_question", string(pending)).
				Msg("Unknown pending question in conversation state, resetting")
			rec.ConversationState.ClearPending()
			reply = CorruptedStatePrefix
		} else {
			answer, matched := q.Match(*input)
			if !matched {
				logger.Warn().
					Str("pending_question", string(pending)).
					Str("input", *input).
					Msg("Answer did not match any option, asking again")
				rec.ConversationState.HoldProfile()
				return q.Reask()
			}

			logger.Info().
				Str("parameter", string(pending)).
				Str("answer", answer).
				Msg("Recorded profile answer")
			rec.SetParameter(pending, answer)
			rec.ConversationState.ClearPending()
		}
	}

	if has, _ := rec.Profile.RiskParameters.Get(user.HasLoans); has == user.AnswerNo {
		// Reapplies the N/A fill for records written before it was enforced.
		rec.SetParameter(user.HasLoans, user.AnswerNo)
	}

	if next, ok := NextQuestion(rec.Profile.RiskParameters); ok {
		rec.ConversationState.AwaitQuestion(next.Key)
		logger.Info().Str("parameter", string(next.Key)).Msg("Asking next profile question")
		return reply + next.Prompt()
	}

	logger.Info().Msg("All profile parameters collected, scoring")
	res, ok := risk.Score(rec.Profile.RiskParameters)
	if !ok {
		logger.Error().
			Interface("parameters", rec.Profile.RiskParameters).
			Msg("Scoring incomplete although every parameter is answered")
		rec.ConversationState.Reset()
		return reply + ScoringFailedReply
	}

	rec.Profile.SetRiskResult(res.ToUserResult())
	rec.ConversationState.Reset()
	metrics.RecordProfileCompleted(string(res.Category))
	logger.Info().
		Int("risk_score", res.Score).
		Str("risk_category", string(res.Category)).
		Msg("Risk profile scored")

	return reply + CompletionReply(res)
}

// NextQuestion returns the first unanswered question in declaration order.
// loan_payment_percentage is skipped until has_loans is answered, and is
// treated as filled with "N/A" when the answer is "No".
func NextQuestion(params user.RiskParameters) (Question, bool) {
	hasLoans, hasLoansAnswered := params.Get(user.HasLoans)

	for _, q := range Questions {
		if q.Key == user.LoanPaymentPercentage {
			if !hasLoansAnswered {
				continue
			}
			if hasLoans == user.AnswerNo {
				continue
			}
		}
		if _, answered := params.Get(q.Key); !answered {
			return q, true
		}
	}
	return Question{}, false
}

// CompletionReply is the message sent once a profile is scored
func CompletionReply(res risk.Result) string {
	return fmt.Sprintf("Thank you! I've assessed your financial profile based on your answers. "+
		"Your Financial Stability Score is %d/100, placing you in the '%s' category. "+
		"This helps understand your capacity for investment risk. "+
		"Would you like portfolio suggestions based on this?", res.Score, res.Category)
}

package risk

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/user"
)

// Score bounds and category thresholds
const (
	MinScore = 0
	MaxScore = 100

	HighThreshold     = 80
	ModerateThreshold = 50
)

// pointTable maps every accepted answer to its 0/5/10 contribution. Higher is
// more financially conservative.
var pointTable = map[user.ParamKey]map[string]int{
	user.IncomeSource: {
		"Salary":      10,
		"Business":    5,
		"Investments": 5,
		"Others":      0,
	},
	user.IncomeStability: {
		"Very stable":     10,
		"Somewhat stable": 5,
		"Unstable":        0,
	},
	user.SavingsPercentage: {
		"More than 30%": 10,
		"10-30%":        5,
		"Less than 10%": 0,
	},
	user.HasLoans: {
		"No":                  10,
		"Yes, but manageable": 5,
		"Yes, multiple loans": 0,
	},
	user.LoanPaymentPercentage: {
		"Less than 20%":               10,
		"20-50%":                      5,
		"More than 50%":               0,
		user.LoanPaymentNotApplicable: 10,
	},
	user.CreditUsageFrequency: {
		"Rarely":    10,
		"Sometimes": 5,
		"Often":     0,
	},
	user.InvestmentPreference: {
		"Fixed Deposits & Savings": 10,
		"Mutual Funds & Stocks":    5,
		"High-risk investments":    0,
	},
	user.ReactionToLoss: {
		"Invest more":      10,
		"Wait and watch":   5,
		"Sell immediately": 0,
	},
	user.EmergencyFund: {
		"Yes": 10,
		"No":  0,
	},
	user.MissedPayments: {
		"No":  10,
		"Yes": 0,
	},
}

// Result is a complete score
type Result struct {
	Score     int
	Category  user.RiskCategory
	Breakdown map[string]int
}

// Points returns the contribution of answer for key k and whether the answer
// is in the accepted set.
func Points(k user.ParamKey, answer string) (int, bool) {
	table, ok := pointTable[k]
	if !ok {
		return 0, false
	}
	p, ok := table[answer]
	return p, ok
}

// Score converts a complete set of answers into a score and category. The
// second return is false when any required answer is missing or unrecognised;
// no partial score is produced in that case. params is not modified.
func Score(params user.RiskParameters) (Result, bool) {
	breakdown := make(map[string]int, len(user.ParamKeys))
	total := 0
	complete := true

	hasLoans, _ := params.Get(user.HasLoans)

	for i, k := range user.ParamKeys {
		label := BreakdownLabel(i)
		answer, ok := params.Get(k)

		if k == user.LoanPaymentPercentage && hasLoans == user.AnswerNo {
			// Inapplicable without loans: scored as N/A whatever is stored.
			answer, ok = user.LoanPaymentNotApplicable, true
		}

		if !ok {
			breakdown[label] = 0
			complete = false
			continue
		}

		points, known := Points(k, answer)
		if !known {
			log.Warn().
				Str("parameter", string(k)).
				Str("answer", answer).
				Msg("Unrecognised risk answer, scoring as 0")
			breakdown[label] = 0
			complete = false
			continue
		}

		breakdown[label] = points
		total += points
	}

	if !complete {
		return Result{}, false
	}

	score := Clamp(total)
	return Result{
		Score:     score,
		Category:  CategoryFor(score),
		Breakdown: breakdown,
	}, true
}

// Clamp bounds a raw total to [MinScore, MaxScore]
func Clamp(total int) int {
	if total < MinScore {
		return MinScore
	}
	if total > MaxScore {
		return MaxScore
	}
	return total
}

// CategoryFor buckets a clamped score
func CategoryFor(score int) user.RiskCategory {
	switch {
	case score >= HighThreshold:
		return user.HighRiskTolerance
	case score >= ModerateThreshold:
		return user.ModerateRiskTolerance
	default:
		return user.LowRiskTolerance
	}
}

// BreakdownLabel returns the q1..q10 label for the i-th parameter
func BreakdownLabel(i int) string {
	return fmt.Sprintf("q%d", i+1)
}

// ToUserResult converts a score into the form stored on the profile
func (r Result) ToUserResult() user.RiskResult {
	return user.RiskResult{
		Score:     r.Score,
		Category:  r.Category,
		Breakdown: r.Breakdown,
	}
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/moneymind/internal/user"
)

func conservativeParams() user.RiskParameters {
	return user.RiskParameters{
		user.IncomeSource:          "Salary",
		user.IncomeStability:       "Very stable",
		user.SavingsPercentage:     "More than 30%",
		user.HasLoans:              "No",
		user.LoanPaymentPercentage: user.LoanPaymentNotApplicable,
		user.CreditUsageFrequency:  "Rarely",
		user.InvestmentPreference:  "Fixed Deposits & Savings",
		user.ReactionToLoss:        "Invest more",
		user.EmergencyFund:         "Yes",
		user.MissedPayments:        "No",
	}
}

func TestScore_AllConservativeAnswers(t *testing.T) {
	res, ok := Score(conservativeParams())
	require.True(t, ok)

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, user.HighRiskTolerance, res.Category)
	require.Len(t, res.Breakdown, 10)
	for i := range user.ParamKeys {
		assert.Equal(t, 10, res.Breakdown[BreakdownLabel(i)])
	}
}

func TestScore_AllLeastConservativeAnswers(t *testing.T) {
	params := user.RiskParameters{
		user.IncomeSource:          "Others",
		user.IncomeStability:       "Unstable",
		user.SavingsPercentage:     "Less than 10%",
		user.HasLoans:              "Yes, multiple loans",
		user.LoanPaymentPercentage: "More than 50%",
		user.CreditUsageFrequency:  "Often",
		user.InvestmentPreference:  "High-risk investments",
		user.ReactionToLoss:        "Sell immediately",
		user.EmergencyFund:         "No",
		user.MissedPayments:        "Yes",
	}

	res, ok := Score(params)
	require.True(t, ok)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, user.LowRiskTolerance, res.Category)
}

func TestScore_NoLoansSkipsLoanPayment(t *testing.T) {
	orders := []struct {
		name   string
		stored *string
	}{
		{name: "loan payment absent", stored: nil},
		{name: "loan payment already N/A", stored: strPtr(user.LoanPaymentNotApplicable)},
		{name: "stale loan payment answer", stored: strPtr("More than 50%")},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			params := conservativeParams()
			delete(params, user.LoanPaymentPercentage)
			if tt.stored != nil {
				params[user.LoanPaymentPercentage] = *tt.stored
			}

			res, ok := Score(params)
			require.True(t, ok)
			assert.Equal(t, 10, res.Breakdown["q5"])
			assert.Equal(t, 100, res.Score)
		})
	}
}

func TestScore_CompletenessGate(t *testing.T) {
	for _, k := range user.ParamKeys {
		if k == user.LoanPaymentPercentage {
			continue
		}
		t.Run("missing "+string(k), func(t *testing.T) {
			params := conservativeParams()
			delete(params, k)
			_, ok := Score(params)
			assert.False(t, ok)
		})
	}

	t.Run("loan payment required with loans", func(t *testing.T) {
		params := conservativeParams()
		params[user.HasLoans] = "Yes, but manageable"
		delete(params, user.LoanPaymentPercentage)
		_, ok := Score(params)
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := Score(user.RiskParameters{})
		assert.False(t, ok)
	})

	t.Run("nil", func(t *testing.T) {
		_, ok := Score(nil)
		assert.False(t, ok)
	})
}

func TestScore_UnknownAnswerIsIncomplete(t *testing.T) {
	params := conservativeParams()
	params[user.ReactionToLoss] = "Panic"

	_, ok := Score(params)
	assert.False(t, ok)
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	params := conservativeParams()
	delete(params, user.LoanPaymentPercentage)
	before := params.Clone()

	_, _ = Score(params)
	assert.Equal(t, before, params)
}

func TestScore_MixedAnswers(t *testing.T) {
	params := user.RiskParameters{
		user.IncomeSource:          "Business",            // 5
		user.IncomeStability:       "Somewhat stable",     // 5
		user.SavingsPercentage:     "10-30%",              // 5
		user.HasLoans:              "Yes, but manageable", // 5
		user.LoanPaymentPercentage: "Less than 20%",       // 10
		user.CreditUsageFrequency:  "Sometimes",           // 5
		user.InvestmentPreference:  "Mutual Funds & Stocks",
		user.ReactionToLoss:        "Wait and watch", // 5
		user.EmergencyFund:         "Yes",            // 10
		user.MissedPayments:        "Yes",            // 0
	}

	res, ok := Score(params)
	require.True(t, ok)
	assert.Equal(t, 55, res.Score)
	assert.Equal(t, user.ModerateRiskTolerance, res.Category)
	assert.Equal(t, 10, res.Breakdown["q5"])
	assert.Equal(t, 0, res.Breakdown["q10"])
}

func TestCategoryFor_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  user.RiskCategory
	}{
		{0, user.LowRiskTolerance},
		{49, user.LowRiskTolerance},
		{50, user.ModerateRiskTolerance},
		{79, user.ModerateRiskTolerance},
		{80, user.HighRiskTolerance},
		{100, user.HighRiskTolerance},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFor(tt.score), "score %d", tt.score)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-35))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 64, Clamp(64))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(250))
	assert.Equal(t, user.HighRiskTolerance, CategoryFor(Clamp(1000)))
}

func TestPoints(t *testing.T) {
	p, ok := Points(user.LoanPaymentPercentage, user.LoanPaymentNotApplicable)
	assert.True(t, ok)
	assert.Equal(t, 10, p)

	_, ok = Points(user.EmergencyFund, "Maybe")
	assert.False(t, ok)

	_, ok = Points(user.ParamKey("favourite_colour"), "Blue")
	assert.False(t, ok)
}

func strPtr(s string) *string { return &s }

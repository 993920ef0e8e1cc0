package profiling

import (
	"strings"

	"github.com/ajitpratap0/moneymind/internal/user"
)

// Question is one questionnaire prompt and its canonical answers
type Question struct {
	Key     user.ParamKey
	Text    string
	Options []string
}

// Questions holds the questionnaire, one entry per parameter in declaration order
var Questions = []Question{
	{
		Key:     user.IncomeSource,
		Text:    "What is your primary source of income?",
		Options: []string{"Salary", "Business", "Investments", "Others"},
	},
	{
		Key:     user.IncomeStability,
		Text:    "How stable is your income?",
		Options: []string{"Very stable", "Somewhat stable", "Unstable"},
	},
	{
		Key:     user.SavingsPercentage,
		Text:    "What percentage of your income do you typically save or invest each month?",
		Options: []string{"Less than 10%", "10-30%", "More than 30%"},
	},
	{
		Key:     user.HasLoans,
		Text:    "Do you have any outstanding loans or EMIs (like home, car, personal loans)?",
		Options: []string{"No", "Yes, but manageable", "Yes, multiple loans"},
	},
	{
		Key:     user.LoanPaymentPercentage,
		Text:    "Approximately what percentage of your monthly income goes towards loan/EMI payments?",
		Options: []string{"Less than 20%", "20-50%", "More than 50%"},
	},
	{
		Key:     user.CreditUsageFrequency,
		Text:    "How often do you use credit cards or short-term loans to cover regular monthly expenses?",
		Options: []string{"Rarely", "Sometimes", "Often"},
	},
	{
		Key:     user.InvestmentPreference,
		Text:    "How do you generally prefer to invest your money?",
		Options: []string{"Fixed Deposits & Savings", "Mutual Funds & Stocks", "High-risk investments"},
	},
	{
		Key:     user.ReactionToLoss,
		Text:    "Imagine your investments dropped 20% in value over a short period. How would you most likely react?",
		Options: []string{"Sell immediately", "Wait and watch", "Invest more"},
	},
	{
		Key:     user.EmergencyFund,
		Text:    "Do you have an emergency fund (savings for unexpected expenses) covering at least 6 months of your essential living costs?",
		Options: []string{"Yes", "No"},
	},
	{
		Key:     user.MissedPayments,
		Text:    "In the last 12 months, have you missed any loan EMI or credit card payments?",
		Options: []string{"No", "Yes"},
	},
}

// QuestionFor looks up the question for k
func QuestionFor(k user.ParamKey) (Question, bool) {
	for _, q := range Questions {
		if q.Key == k {
			return q, true
		}
	}
	return Question{}, false
}

// Prompt renders the question as first asked
func (q Question) Prompt() string {
	return q.Text + " Options: [" + strings.Join(q.Options, ", ") + "]"
}

// Reask renders the question after an unrecognised answer
func (q Question) Reask() string {
	return "Sorry, I didn't quite understand that. Please choose one of the options. " +
		q.Text + " (" + strings.Join(q.Options, ", ") + ")"
}

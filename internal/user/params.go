package user

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParamKey names one of the ten questionnaire answers stored on a profile
type ParamKey string

const (
	IncomeSource          ParamKey = "income_source"
	IncomeStability       ParamKey = "income_stability"
	SavingsPercentage     ParamKey = "savings_percentage"
	HasLoans              ParamKey = "has_loans"
	LoanPaymentPercentage ParamKey = "loan_payment_percentage"
	CreditUsageFrequency  ParamKey = "credit_usage_frequency"
	InvestmentPreference  ParamKey = "investment_preference"
	ReactionToLoss        ParamKey = "reaction_to_loss"
	EmergencyFund         ParamKey = "emergency_fund"
	MissedPayments        ParamKey = "missed_payments"
)

// ParamKeys lists every parameter in declaration order. Questions are asked
// and scores are labelled q1..q10 in this order.
var ParamKeys = []ParamKey{
	IncomeSource,
	IncomeStability,
	SavingsPercentage,
	HasLoans,
	LoanPaymentPercentage,
	CreditUsageFrequency,
	InvestmentPreference,
	ReactionToLoss,
	EmergencyFund,
	MissedPayments,
}

// Answers shared between the questionnaire and the scoring table
const (
	AnswerNo  = "No"
	AnswerYes = "Yes"

	// LoanPaymentNotApplicable is forced onto loan_payment_percentage when the
	// user has no loans.
	LoanPaymentNotApplicable = "N/A"
)

// Valid reports whether k is one of the ten known keys
func (k ParamKey) Valid() bool {
	for _, known := range ParamKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Index returns the zero-based declaration position of k, or -1
func (k ParamKey) Index() int {
	for i, known := range ParamKeys {
		if k == known {
			return i
		}
	}
	return -1
}

// RiskParameters maps parameter keys to canonical answers. A missing key means
// the question has not been answered.
type RiskParameters map[ParamKey]string

// Get returns the answer for k and whether one is recorded
func (p RiskParameters) Get(k ParamKey) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[k]
	return v, ok
}

// Clone returns an independent copy
func (p RiskParameters) Clone() RiskParameters {
	out := make(RiskParameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MarshalJSON always writes all ten keys in declaration order, unanswered ones as null
func (p RiskParameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range ParamKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(k))
		buf.Write(key)
		buf.WriteByte(':')
		if v, ok := p[k]; ok {
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal %s: %w", k, err)
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the persisted object, treating null as unanswered and
// dropping keys outside the known ten.
func (p *RiskParameters) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RiskParameters, len(ParamKeys))
	for k, v := range raw {
		key := ParamKey(k)
		if v == nil || !key.Valid() {
			continue
		}
		out[key] = *v
	}
	*p = out
	return nil
}

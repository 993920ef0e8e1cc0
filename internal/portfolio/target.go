// Package portfolio builds, parses, checks and renders generated
// allocations across low, medium and high risk buckets.
package portfolio

import "github.com/ajitpratap0/moneymind/internal/user"

// Target is the overall bucket split for a risk category, in percent
type Target struct {
	Low    int
	Medium int
	High   int
}

// TargetFor returns the split for a category. Unknown categories get 50/30/20.
func TargetFor(c user.RiskCategory) Target {
	switch c {
	case user.LowRiskTolerance:
		return Target{Low: 65, Medium: 25, High: 10}
	case user.ModerateRiskTolerance:
		return Target{Low: 40, Medium: 40, High: 20}
	case user.HighRiskTolerance:
		return Target{Low: 20, Medium: 40, High: 40}
	default:
		return Target{Low: 50, Medium: 30, High: 20}
	}
}

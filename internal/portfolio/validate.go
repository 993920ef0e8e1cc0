package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/moneymind/internal/user"
)

// Tolerance is the allowed drift, in percentage points, for every sum check
var Tolerance = decimal.RequireFromString("0.1")

var hundred = decimal.NewFromInt(100)

// Warning describes one sum that fell outside tolerance
type Warning struct {
	// Bucket is the bucket key, or "" for the overall total
	Bucket   string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (w Warning) String() string {
	if w.Bucket == "" {
		return fmt.Sprintf("Total portfolio percentage (%s) is not 100%%.", w.Actual)
	}
	return fmt.Sprintf("Category '%s' breakdown sum (%s) doesn't match category percentage (%s).", w.Bucket, w.Actual, w.Expected)
}

// Validate checks that each bucket's breakdown sums to its percentage and
// that the buckets sum to 100, each within Tolerance. Deviations are
// reported, never rejected.
func Validate(a user.Allocation) []Warning {
	var warnings []Warning
	total := decimal.Zero

	for _, nb := range a.Buckets() {
		if nb.Bucket == nil {
			continue
		}
		pct := decimal.NewFromFloat(nb.Bucket.Percentage)
		total = total.Add(pct)

		sum := decimal.Zero
		for _, h := range nb.Bucket.Breakdown {
			sum = sum.Add(decimal.NewFromFloat(h.Percentage))
		}
		if !within(sum, pct) {
			warnings = append(warnings, Warning{Bucket: nb.Key, Expected: pct, Actual: sum})
		}
	}

	if !within(total, hundred) {
		warnings = append(warnings, Warning{Expected: hundred, Actual: total})
	}
	return warnings
}

func within(actual, expected decimal.Decimal) bool {
	return actual.Sub(expected).Abs().LessThanOrEqual(Tolerance)
}

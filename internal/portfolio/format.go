package portfolio

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ajitpratap0/moneymind/internal/user"
)

// Disclaimer closes every rendered suggestion
const Disclaimer = "\n**Disclaimer:** This is an AI-generated suggestion based on your inputs and general principles. " +
	"It is not financial advice. All investments involve risk. Please consult with a SEBI-registered " +
	"financial advisor before making any investment decisions."

// View is what Format needs to render a suggestion
type View struct {
	Name       string
	Category   user.RiskCategory
	Score      int
	Request    string
	Adjustment bool
	Allocation user.Allocation
}

// Format renders an allocation as chat text
func Format(v View) string {
	var sb strings.Builder

	name := v.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&sb, "Okay %s, based on your '%s' profile ", name, v.Category)
	if v.Adjustment {
		fmt.Fprintf(&sb, "and your request ('%s'), here's an adjusted suggestion:\n\n", v.Request)
	} else {
		fmt.Fprintf(&sb, "(Score: %d), here's a suggested portfolio allocation:\n\n", v.Score)
	}

	for _, nb := range v.Allocation.Buckets() {
		if nb.Bucket == nil {
			continue
		}
		fmt.Fprintf(&sb, "**%s (%s%%)**\n", titleCase(nb.Key), formatPercent(nb.Bucket.Percentage))
		if len(nb.Bucket.Breakdown) == 0 {
			sb.WriteString("- (No specific assets listed)\n")
		}
		for _, h := range nb.Bucket.Breakdown {
			fmt.Fprintf(&sb, "- %s: %s%%\n", titleCase(h.Asset), formatPercent(h.Percentage))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(Disclaimer)
	return sb.String()
}

// titleCase turns snake_case keys into words, capitalising the first letter
// of every run of letters and lowering the rest.
func titleCase(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	out := make([]rune, 0, len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				out = append(out, unicode.ToLower(r))
			} else {
				out = append(out, unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		out = append(out, r)
		prevLetter = false
	}
	return string(out)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

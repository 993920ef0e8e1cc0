package portfolio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajitpratap0/moneymind/internal/user"
)

var adjustmentWords = []string{"adjust", "change", "modify", "remove", "add", "less", "more"}

// IsAdjustment reports whether input asks to change an earlier suggestion
func IsAdjustment(input string) bool {
	lower := strings.ToLower(input)
	for _, w := range adjustmentWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// PromptInput carries everything the generation prompt mentions
type PromptInput struct {
	Category    user.RiskCategory
	Score       int
	Preferences user.Preferences
	Target      Target
	Request     string
	// Previous is set when the request adjusts an earlier suggestion
	Previous *user.Allocation
}

// BuildPrompt renders the portfolio generation prompt
func BuildPrompt(in PromptInput) string {
	t := in.Target
	prefs, _ := json.Marshal(in.Preferences)

	var task string
	if in.Previous != nil {
		prev, _ := json.Marshal(in.Previous)
		task = fmt.Sprintf(`The user is asking to adjust the previous suggestion.
User Adjustment Request: %q
Previous Suggestion Context: %s

Modify the portfolio breakdown based on the user's request while trying to maintain the overall risk category allocation (%d%% Low, %d%% Medium, %d%% High). Reallocate percentages within or across categories if necessary to accommodate the request (e.g., if they want 0%% crypto, reallocate that percentage).`,
			in.Request, prev, t.Low, t.Medium, t.High)
	} else {
		task = fmt.Sprintf(`Generate an initial portfolio based on the user's profile.
User Request (if specific): %q`, in.Request)
	}

	return fmt.Sprintf(`You are MoneyMind, an AI assistant providing personalized investment portfolio suggestions for users in India.
User Profile:
- Risk Category: %s
- Financial Stability Score: %d/100
- User Preferences (Likes): %s

Target Overall Allocation:
- Low-Risk Investments: %d%%
- Medium-Risk Investments: %d%%
- High-Risk Investments: %d%%

%s

Instructions:
1. Create a detailed portfolio breakdown within the target allocation percentages.
2. Use investment types relevant and accessible in INDIA (e.g., PPF, NPS, Indian Equities - Large/Mid/Small Cap, G-Secs, Corporate Bonds, Gold SGBs/ETFs, REITs India, Liquid/Hybrid Funds). Avoid suggesting products not easily available in India unless specified.
3. Ensure the percentages within each risk category breakdown sum up *exactly* to that category's target percentage (%d%% for Low, etc.).
4. Ensure the sum of all category percentages (low + medium + high) equals 100%%.
5. Structure the output *strictly* as a JSON object containing ONLY the "portfolio_allocation" key, following this schema:
   {
     "portfolio_allocation": {
       "low_risk_investments": {
         "percentage": %d,
         "breakdown": { "asset_name_india_1": percentage, "asset_name_india_2": percentage, ... }
       },
       "medium_risk_investments": {
         "percentage": %d,
         "breakdown": { "asset_name_india_3": percentage, "asset_name_india_4": percentage, ... }
       },
       "high_risk_investments": {
         "percentage": %d,
         "breakdown": { "asset_name_india_5": percentage, "asset_name_india_6": percentage, ... }
       }
     }
   }
6. Use snake_case for keys in the JSON breakdown (e.g., "government_bonds_gsecs", "indian_equity_large_cap").
7. Double-check all percentage sums before finalizing the JSON.
8. If suggesting volatile assets like Crypto, keep the percentage very small, especially for lower risk profiles, and mention the high risk.

Generate ONLY the JSON object as requested. No introductory text, no explanations outside the JSON.`,
		in.Category, in.Score, prefs,
		t.Low, t.Medium, t.High,
		task,
		t.Low,
		t.Low, t.Medium, t.High)
}

package investments

import (
	"fmt"
	"strings"
)

func answerPrompt(q Query, userCtx map[string]any) string {
	var b strings.Builder
	b.WriteString("Answer the user's question about investments in a helpful, accurate and concise manner. ")
	b.WriteString("Be educational rather than promotional.\n\n")
	fmt.Fprintf(&b, "User question: %s\n", q.Question)

	if len(q.Products) > 0 {
		fmt.Fprintf(&b, "\nThe user is asking about these investment products:\n%s\n", indentJSON(q.Products))
	}
	if userCtx != nil {
		fmt.Fprintf(&b, "\nAdditional information about the user:\n%s\n", indentJSON(userCtx))
	}
	if h := historyText(q.History); h != "" {
		fmt.Fprintf(&b, "\nRecent conversation history:\n%s\n", h)
	}

	b.WriteString(`
Tailor the reply to the specific question and context and acknowledge the limits of your knowledge.

Format your response as a JSON object with these fields:
- answer: your main response to the question
- follow_up_questions: an array of 2-3 natural follow-up questions the user might want to ask
- resources: an array of types of resources the user might want to consult (e.g. "Financial advisor", "Tax professional", "Scheme information document")
`)
	return b.String()
}

// historyText quotes the last few exchanges. Turns without a user message
// are skipped.
func historyText(history []Turn) string {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	var lines []string
	for _, t := range history {
		if strings.TrimSpace(t.User) == "" {
			continue
		}
		lines = append(lines, "User: "+t.User)
		if t.Assistant != "" {
			lines = append(lines, "Assistant: "+t.Assistant)
		}
	}
	return strings.Join(lines, "\n")
}

func explainPrompt(product Product, userCtx map[string]any) string {
	if userCtx == nil {
		userCtx = map[string]any{}
	}
	return fmt.Sprintf(`Explain the benefits and considerations of this investment product to a potential investor:

%s

User context:
%s

Give a balanced analysis of the benefits and the important considerations. Be specific about who the product suits.

Format your response as a JSON object with these fields:
- summary: a brief overview of the product and its key benefits (2-3 sentences)
- benefits: an array of specific benefits (4-6 items)
- considerations: an array of important considerations or potential drawbacks (2-4 items)
- ideal_for: a description of the ideal investor profile for this product
`, indentJSON(product), indentJSON(userCtx))
}

func comparePrompt(products []Product) string {
	return fmt.Sprintf(`Compare these investment products for a potential investor:

%s

Highlight the key differences and which product suits which goals and risk profiles.

Format your response as a JSON object with these fields:
- overview: a conversational overview of the products being compared (3-4 sentences)
- key_differences: an array of the most important differentiating factors between the products
- recommendation: a nuanced recommendation that acknowledges different investor needs
- considerations: an array of important factors the investor should keep in mind when deciding
`, indentJSON(products))
}

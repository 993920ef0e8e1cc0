package agents

import (
	"fmt"
	"strings"
)

// recentContextSize is how many remembered topics are quoted in prompts
const recentContextSize = 5

func lastN(items []string, n int) []string {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

// QnAPrompt builds the question answering prompt
func QnAPrompt(name, question string, topics []string) string {
	context := ""
	if len(topics) > 0 {
		context = fmt.Sprintf("The user (%s) has previously shown interest in: %s.", name, strings.Join(lastN(topics, recentContextSize), ", "))
	}

	return fmt.Sprintf(`You are a helpful financial Q&A assistant for users in India. Your name is MoneyMind.
The user's name is %s.
%s

User's question: %q

Instructions:
1. Answer the question clearly, concisely, and accurately, focusing on the Indian context (e.g., Indian regulations, markets, financial products like PPF, NPS, specific banks).
2. If the question requires current information, specific data points, or details beyond general knowledge, use the 'google_search' tool. Formulate a good search query.
3. If the question asks for explanations or "how-to" guides, consider using the 'youtube_search' tool to find relevant videos. Formulate a good search query.
4. Integrate the information found from tools smoothly into your answer. Cite the source or link if appropriate (e.g., "According to [Source Name], ..."). If providing video suggestions, list the title and link.
5. Identify the main financial topic(s) discussed in the user's question (e.g., "Mutual Funds", "Stock Market", "Taxation", "Loans").
6. Be polite and conversational.

Respond directly with the answer. Do not explicitly state which tool you are using unless suggesting videos or citing search results.`,
		name, context, question)
}

// NewsContext summarises remembered news interests, or "" when there are none
func NewsContext(topics, companies []string) string {
	var parts []string
	if len(topics) > 0 {
		parts = append(parts, "User previously showed interest in news about: "+strings.Join(lastN(topics, recentContextSize), ", "))
	}
	if len(companies) > 0 {
		parts = append(parts, "They follow companies like: "+strings.Join(lastN(companies, recentContextSize), ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// NewsPrompt builds the news summarisation prompt
func NewsPrompt(request string, topics, companies []string) string {
	return fmt.Sprintf(`You are MoneyMind, a specialized financial assistant for India. Your task is to provide relevant financial news or market summaries based on user requests by using the available tool.
%s
The user's request is: %q

**Your Process:**
1. Analyze the user's request.
2. Determine the most relevant query term for the Indian context (e.g., 'Reliance Industries news', 'Indian stock market indices', 'RBI monetary policy update', 'gold price India').
3. **You MUST call the 'get_financial_news' function tool with this specific query.** Do not answer from your internal knowledge or state you cannot access current news/market data.
4. The tool returns a JSON list of recent headlines with title, link, snippet, source and date. An empty list means nothing specific was found.
5. **Synthesize the tool's results into a concise, user-friendly summary.**
   * If news results were returned: Present 2-4 key headlines with their source and a brief snippet. Mention links if available.
   * If the tool returned no results: Inform the user politely, mentioning the specific query tried.
6. Determine the primary topic/entity that was searched for.

**Respond directly to the user with the synthesized summary based *only* on the data provided by the 'get_financial_news' tool.** Start appropriately, e.g., "Okay, here's the latest I found on [topic]:". Do not include technical details about the tool call itself.`,
		NewsContext(topics, companies), request)
}

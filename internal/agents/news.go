package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/search"
	"github.com/ajitpratap0/moneymind/internal/user"
)

const (
	newsErrorReply  = "Sorry, an internal error occurred while processing your news request. Please try again later."
	newsConfigReply = "Sorry, there's a configuration issue with the news fetching tool. Please notify support."
)

// Phrases that mean the model refused instead of calling the news tool
var newsFailurePhrases = []string{
	"i cannot fulfill", "lack the functionality", "do not have enough information",
	"beyond my current capabilities", "unable to provide news", "cannot access real-time data",
}

// NewsAgent summarises recent financial news for a request
type NewsAgent struct {
	gen   llm.Generator
	tools map[string]llm.ToolFunc
	now   Clock
	log   zerolog.Logger
}

// NewNewsAgent creates the agent. tools must hold get_financial_news.
func NewNewsAgent(gen llm.Generator, tools map[string]llm.ToolFunc) *NewsAgent {
	return &NewsAgent{
		gen:   gen,
		tools: tools,
		now:   utcNow,
		log:   log.With().Str("component", "news_agent").Logger(),
	}
}

func (a *NewsAgent) Name() user.AgentName { return user.AgentNews }

// Handle answers a news request and logs it on rec. Internal failures are
// logged as a failed news entry rather than returned.
func (a *NewsAgent) Handle(ctx context.Context, input string, rec *user.Record) (string, error) {
	if _, ok := a.tools[search.ToolFinancialNews]; !ok {
		a.log.Error().Msg("News tool is not registered")
		return newsConfigReply, nil
	}
	if err := ctx.Err(); err != nil {
		return a.fail(input, rec, err), nil
	}

	prompt := NewsPrompt(input, rec.Preferences.NewsInteractionTopics, rec.Preferences.LikedCompanies)
	reply := a.gen.GenerateWithTools(ctx, prompt, []llm.ToolSpec{search.FinancialNewsSpec}, a.tools)

	topic := NewsTopic(input)
	failed := refused(reply)
	if failed {
		a.log.Warn().Str("user_id", rec.UserID).Str("topic", topic).Str("reply", reply).
			Msg("Model declined to fetch news")
	}

	rec.AddNewsTopic(topic)
	rec.AppendNews(user.NewsEntry{
		Request:           input,
		ResponseReceived:  reply,
		TopicIdentified:   topic,
		Timestamp:         a.now(),
		UnexpectedFailure: failed,
	})

	a.log.Info().Str("user_id", rec.UserID).Str("topic", topic).Msg("News request handled")
	return reply, nil
}

func (a *NewsAgent) fail(input string, rec *user.Record, err error) string {
	a.log.Error().Err(err).Str("user_id", rec.UserID).Msg("News request failed")
	metrics.RecordAgentError(string(a.Name()))
	rec.AppendNews(user.NewsEntry{
		Request:           input,
		ResponseReceived:  fmt.Sprintf("Agent Error: %s", metrics.NormalizeError(err)),
		TopicIdentified:   "Error",
		Timestamp:         a.now(),
		UnexpectedFailure: true,
	})
	return newsErrorReply
}

func refused(reply string) bool {
	lower := strings.ToLower(reply)
	for _, p := range newsFailurePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

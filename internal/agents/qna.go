package agents

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/search"
	"github.com/ajitpratap0/moneymind/internal/user"
)

const qnaErrorReply = "Sorry, I encountered an error while processing your question. Please try again."

// QnAAgent answers general finance questions with web and video search
type QnAAgent struct {
	gen   llm.Generator
	tools map[string]llm.ToolFunc
	now   Clock
	log   zerolog.Logger
}

// NewQnAAgent creates the agent. tools must hold the google and youtube
// search implementations.
func NewQnAAgent(gen llm.Generator, tools map[string]llm.ToolFunc) *QnAAgent {
	return &QnAAgent{
		gen:   gen,
		tools: tools,
		now:   utcNow,
		log:   log.With().Str("component", "qna_agent").Logger(),
	}
}

func (a *QnAAgent) Name() user.AgentName { return user.AgentQnA }

// Handle answers input and records the topics and exchange on rec
func (a *QnAAgent) Handle(ctx context.Context, input string, rec *user.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		a.log.Error().Err(err).Str("user_id", rec.UserID).Msg("Question abandoned")
		metrics.RecordAgentError(string(a.Name()))
		return qnaErrorReply, nil
	}

	prompt := QnAPrompt(rec.DisplayName("there"), input, rec.Preferences.QnATopicsInterest)
	reply := a.gen.GenerateWithTools(ctx, prompt,
		[]llm.ToolSpec{search.GoogleSearchSpec, search.YouTubeSearchSpec}, a.tools)

	topics := QnATopics(input)
	for _, t := range topics {
		rec.AddQnATopic(t)
	}
	rec.AppendQnA(input, reply, a.now())

	a.log.Info().Str("user_id", rec.UserID).Strs("topics", topics).Msg("Question answered")
	return reply, nil
}

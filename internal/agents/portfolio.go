package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/portfolio"
	"github.com/ajitpratap0/moneymind/internal/user"
)

// NeedsProfileReply is returned while the user has no risk result. The
// router recognises it and starts the questionnaire.
const NeedsProfileReply = "I need to understand your financial risk profile first. Shall we complete that now?"

const (
	portfolioFormatReply     = "Sorry, I generated a portfolio suggestion, but had trouble formatting it correctly. Could you try asking again?"
	portfolioStructureReply  = "Sorry, I encountered an issue generating the portfolio suggestion (%s). Please try again."
	portfolioUnexpectedReply = "Sorry, an unexpected error occurred while generating the portfolio suggestion."
)

// PortfolioAgent generates and adjusts allocations for scored users
type PortfolioAgent struct {
	gen llm.Generator
	now Clock
	log zerolog.Logger
}

// NewPortfolioAgent creates the agent
func NewPortfolioAgent(gen llm.Generator) *PortfolioAgent {
	return &PortfolioAgent{
		gen: gen,
		now: utcNow,
		log: log.With().Str("component", "portfolio_agent").Logger(),
	}
}

func (a *PortfolioAgent) Name() user.AgentName { return user.AgentPortfolio }

// Handle suggests an allocation, or adjusts the last one when input asks to
func (a *PortfolioAgent) Handle(ctx context.Context, input string, rec *user.Record) (string, error) {
	res, ok := rec.Profile.Risk()
	if !ok {
		a.log.Info().Str("user_id", rec.UserID).Msg("Portfolio requested before risk profiling")
		return NeedsProfileReply, nil
	}
	if err := ctx.Err(); err != nil {
		return a.fail(rec, err), nil
	}

	in := portfolio.PromptInput{
		Category:    res.Category,
		Score:       res.Score,
		Preferences: rec.Preferences,
		Target:      portfolio.TargetFor(res.Category),
		Request:     input,
	}
	adjusting := false
	if portfolio.IsAdjustment(input) {
		if last, ok := rec.LastPortfolio(); ok {
			prev := last.Portfolio
			in.Previous = &prev
			adjusting = true
		}
	}

	text := a.gen.Generate(ctx, portfolio.BuildPrompt(in))
	alloc, err := portfolio.ParseResponse(text)
	if err != nil {
		return a.fail(rec, err), nil
	}

	warnings := portfolio.Validate(alloc)
	for _, w := range warnings {
		a.log.Warn().Str("user_id", rec.UserID).Msg(w.String())
	}
	metrics.RecordPortfolioWarnings(len(warnings))

	rec.AppendPortfolio(user.PortfolioSuggestion{
		Timestamp:          a.now(),
		Request:            input,
		RiskCategoryAtTime: res.Category,
		RiskScoreAtTime:    res.Score,
		Portfolio:          alloc,
	})

	a.log.Info().Str("user_id", rec.UserID).Bool("adjustment", adjusting).Msg("Portfolio suggested")
	return portfolio.Format(portfolio.View{
		Name:       rec.DisplayName("there"),
		Category:   res.Category,
		Score:      res.Score,
		Request:    input,
		Adjustment: adjusting,
		Allocation: alloc,
	}), nil
}

func (a *PortfolioAgent) fail(rec *user.Record, err error) string {
	a.log.Error().Err(err).Str("user_id", rec.UserID).Msg("Portfolio generation failed")
	metrics.RecordAgentError(string(a.Name()))
	switch {
	case portfolio.IsFormatError(err):
		return portfolioFormatReply
	case portfolio.IsStructureError(err):
		return fmt.Sprintf(portfolioStructureReply, err.Error())
	default:
		return portfolioUnexpectedReply
	}
}

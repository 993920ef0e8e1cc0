// Package router owns a conversation turn: it loads the user's record,
// picks the agent, recovers from agent failures and always saves.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/agents"
	"github.com/ajitpratap0/moneymind/internal/events"
	"github.com/ajitpratap0/moneymind/internal/intent"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/profiling"
	"github.com/ajitpratap0/moneymind/internal/store"
	"github.com/ajitpratap0/moneymind/internal/user"
)

const (
	greetingReply = "Hello %s, how can I help with your financial questions today?"
	helpReply     = "Hi %s! How can I help you with your finances today? You can ask me questions, get news, assess your risk profile, or get portfolio ideas."
	apologyReply  = "Sorry %s, an unexpected error occurred while handling your request. Please try again."

	// needsProfileMarker identifies the portfolio agent's request for a profile
	needsProfileMarker = "understand your financial risk profile first"
)

// Classifier decides the intent of a message
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Decision
}

// Deps are the collaborators a Router is built from. Events may be nil.
type Deps struct {
	Store      store.Store
	Classifier Classifier
	Machine    *profiling.Machine
	QnA        agents.Agent
	News       agents.Agent
	Portfolio  agents.Agent
	Events     events.Publisher
}

// Router handles one message at a time for any number of users. It keeps
// no per-user state between calls.
type Router struct {
	store      store.Store
	classifier Classifier
	machine    *profiling.Machine
	profile    agents.Agent
	qna        agents.Agent
	news       agents.Agent
	portfolio  agents.Agent
	events     events.Publisher
	log        zerolog.Logger
}

// New creates a Router
func New(d Deps) *Router {
	machine := d.Machine
	if machine == nil {
		machine = profiling.NewMachine()
	}
	return &Router{
		store:      d.Store,
		classifier: d.Classifier,
		machine:    machine,
		profile:    agents.NewProfileAgent(machine),
		qna:        d.QnA,
		news:       d.News,
		portfolio:  d.Portfolio,
		events:     d.Events,
		log:        log.With().Str("component", "router").Logger(),
	}
}

// turn accumulates what happened while handling one message
type turn struct {
	intent  intent.Intent
	agent   user.AgentName
	outcome string
}

// Route handles message from userID and returns the reply text
func (r *Router) Route(ctx context.Context, userID, message string) string {
	start := time.Now()
	turnID := uuid.New()
	logger := r.log.With().Str("turn_id", turnID.String()).Str("user_id", userID).Logger()

	rec := r.store.Load(ctx, userID)
	name := rec.DisplayName("there")

	if strings.TrimSpace(message) == "" {
		metrics.RecordTurn("none", metrics.OutcomeGreeting, time.Since(start))
		return fmt.Sprintf(greetingReply, name)
	}

	logger.Info().Str("input", message).Msg("Routing message")

	var (
		t     turn
		reply string
	)
	if rec.ConversationState.AwaitingProfileAnswer() {
		logger.Info().Msg("Continuing profile conversation")
		t = turn{intent: intent.ProfileUpdate, agent: user.AgentProfile, outcome: metrics.OutcomePending}
		reply, rec = r.dispatch(ctx, logger, r.profile, message, rec, name, &t)
	} else {
		reply, rec = r.classifyAndDispatch(ctx, logger, message, rec, name, &t)
	}

	saveOK := r.store.Save(ctx, userID, rec)
	if !saveOK {
		logger.Error().Msg("CRITICAL: Failed to save updated data for user")
		metrics.RecordSaveFailure()
	}

	elapsed := time.Since(start)
	metrics.RecordTurn(t.intent.Slug(), t.outcome, elapsed)
	r.publish(ctx, logger, turnID, userID, rec, t, saveOK, elapsed)

	logger.Info().
		Str("intent", t.intent.String()).
		Str("agent", string(t.agent)).
		Bool("saved", saveOK).
		Dur("duration", elapsed).
		Msg("Turn complete")
	return reply
}

func (r *Router) classifyAndDispatch(ctx context.Context, logger zerolog.Logger, message string, rec *user.Record, name string, t *turn) (string, *user.Record) {
	d := r.classifier.Classify(ctx, message)
	metrics.RecordClassification(d.Intent.String(), d.ViaModel)
	logger.Info().Str("intent", d.Intent.String()).Bool("via_model", d.ViaModel).Msg("Classified intent")

	t.intent = d.Intent
	t.outcome = metrics.OutcomeOK

	switch d.Intent {
	case intent.QnA:
		t.agent = user.AgentQnA
		return r.dispatch(ctx, logger, r.qna, message, rec, name, t)
	case intent.NewsRequest:
		t.agent = user.AgentNews
		return r.dispatch(ctx, logger, r.news, message, rec, name, t)
	case intent.ProfileUpdate:
		t.agent = user.AgentProfile
		return r.dispatch(ctx, logger, r.profile, message, rec, name, t)
	case intent.PortfolioRequest:
		t.agent = user.AgentPortfolio
		return r.dispatch(ctx, logger, portfolioThenProfile{portfolio: r.portfolio, machine: r.machine, log: logger, turn: t},
			message, rec, name, t)
	case intent.UnclearGeneral:
		return fmt.Sprintf(helpReply, name), rec
	default:
		logger.Warn().Str("intent", d.Intent.String()).Msg("Unhandled intent")
		return fmt.Sprintf(helpReply, name), rec
	}
}

// dispatch runs agent against rec. A returned error or a panic restores the
// record as it was before the call and yields the apology.
func (r *Router) dispatch(ctx context.Context, logger zerolog.Logger, agent agents.Agent, input string, rec *user.Record, name string, t *turn) (reply string, out *user.Record) {
	snapshot, cloneErr := rec.Clone()
	if cloneErr != nil {
		logger.Error().Err(cloneErr).Msg("Failed to snapshot record before dispatch")
		snapshot = rec
	}

	fail := func(err error) {
		logger.Error().Err(err).Str("agent", string(agent.Name())).Msg("Agent failed, restoring record")
		metrics.RecordAgentError(string(agent.Name()))
		t.outcome = metrics.OutcomeError
		reply, out = fmt.Sprintf(apologyReply, name), snapshot
	}

	defer func() {
		if p := recover(); p != nil {
			fail(fmt.Errorf("agent panic: %v", p))
		}
	}()

	text, err := agent.Handle(ctx, input, rec)
	if err != nil {
		fail(err)
		return reply, out
	}

	if owner := agent.Name(); owner != user.AgentProfile && t.agent == owner {
		rec.ConversationState.SetLastAgent(owner)
	}
	return text, rec
}

// portfolioThenProfile starts the questionnaire in the same turn when the
// portfolio agent reports that no risk profile exists yet.
type portfolioThenProfile struct {
	portfolio agents.Agent
	machine   *profiling.Machine
	log       zerolog.Logger
	turn      *turn
}

func (p portfolioThenProfile) Name() user.AgentName { return user.AgentPortfolio }

func (p portfolioThenProfile) Handle(ctx context.Context, input string, rec *user.Record) (string, error) {
	reply, err := p.portfolio.Handle(ctx, input, rec)
	if err != nil {
		return "", err
	}
	if !strings.Contains(reply, needsProfileMarker) {
		return reply, nil
	}

	p.log.Info().Msg("Portfolio needs a risk profile, starting questionnaire")
	p.turn.agent = user.AgentProfile
	return p.machine.Advance(ctx, nil, rec), nil
}

func (r *Router) publish(ctx context.Context, logger zerolog.Logger, turnID uuid.UUID, userID string, rec *user.Record, t turn, saveOK bool, elapsed time.Duration) {
	if r.events == nil {
		return
	}

	ev := events.TurnEvent{
		ID:         turnID,
		UserID:     userID,
		Intent:     t.intent.String(),
		IntentSlug: t.intent.Slug(),
		Agent:      string(t.agent),
		SaveOK:     saveOK,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if k, ok := rec.ConversationState.PendingQuestion(); ok {
		ev.PendingQuestion = string(k)
	}
	if res, ok := rec.Profile.Risk(); ok {
		ev.RiskCategory = string(res.Category)
	}

	if err := r.events.PublishTurn(ctx, ev); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish turn event")
	}
}

package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const classifierSystemPrompt = "You classify messages sent to MoneyMind, a financial assistant for users in India."

// Completer is the slice of the LLM client the classifier needs
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Decision is a classified message
type Decision struct {
	Intent Intent
	// Rule names the keyword rule that fired; empty when the model decided
	Rule string
	// ViaModel is true when the keyword tier did not match
	ViaModel bool
}

// Classifier runs the keyword tier and falls back to the model
type Classifier struct {
	rules []Rule
	llm   Completer
	log   zerolog.Logger
}

// NewClassifier creates a classifier. With no rules DefaultRules is used. llm
// may be nil, in which case unmatched messages are UnclearGeneral.
func NewClassifier(llm Completer, rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{
		rules: rules,
		llm:   llm,
		log:   log.With().Str("component", "intent").Logger(),
	}
}

// Classify decides the intent of text
func (c *Classifier) Classify(ctx context.Context, text string) Decision {
	if rule, ok := MatchRules(c.rules, text); ok {
		c.log.Debug().Str("rule", rule.Name).Str("intent", rule.Intent.String()).Msg("Keyword rule matched")
		return Decision{Intent: rule.Intent, Rule: rule.Name}
	}
	return Decision{Intent: c.classifyWithModel(ctx, text), ViaModel: true}
}

func (c *Classifier) classifyWithModel(ctx context.Context, text string) Intent {
	if c.llm == nil {
		return UnclearGeneral
	}

	raw, err := c.llm.CompleteWithSystem(ctx, classifierSystemPrompt, BuildPrompt(text))
	if err != nil {
		c.log.Error().Err(err).Msg("Intent classification failed, defaulting to Unclear/General")
		return UnclearGeneral
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		c.log.Warn().Msg("Intent classification returned no text")
		return UnclearGeneral
	}

	intent, how := InterpretAnswer(answer)
	switch how {
	case "exact":
		c.log.Info().Str("intent", intent.String()).Msg("Intent classified")
	case "lenient":
		c.log.Warn().Str("raw", answer).Str("intent", intent.String()).Msg("Mapped model answer leniently")
	default:
		c.log.Warn().Str("raw", answer).Msg("Unexpected intent from model, defaulting to Unclear/General")
	}
	return intent
}

// InterpretAnswer maps model output to an Intent: exact name first, then the
// first category name contained in the answer. The second return reports
// "exact", "lenient" or "none".
func InterpretAnswer(answer string) (Intent, string) {
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	if i, ok := ParseIntent(answer); ok {
		return i, "exact"
	}
	lower := strings.ToLower(answer)
	for _, i := range All() {
		if strings.Contains(lower, strings.ToLower(i.String())) {
			return i, "lenient"
		}
	}
	return UnclearGeneral, "none"
}

// BuildPrompt renders the classification prompt for text
func BuildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the user's input and classify it into ONE of the following categories:\n")
	for _, i := range All() {
		sb.WriteString("- ")
		sb.WriteString(i.String())
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\nUser Input: %q\n\n", text))
	names := make([]string, 0, len(All()))
	for _, i := range All() {
		names = append(names, fmt.Sprintf("%q", i.String()))
	}
	sb.WriteString("Respond with ONLY the category name (e.g., " + strings.Join(names, ", ") + ").")
	return sb.String()
}

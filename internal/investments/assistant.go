// Package investments answers free-form questions about investment products
// the app is showing, explains a single product and compares several.
package investments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/user"
)

// Replies used when the model could not be reached
const (
	AnswerFailedReply  = "I'm sorry, I couldn't process your question due to a technical issue. Please try asking in a different way."
	ExplainFailedReply = "I'm sorry, I couldn't analyze this product due to a technical issue."
	CompareFailedReply = "I'm sorry, I couldn't compare these products due to a technical issue."
)

// historyTurns is how many past exchanges are quoted back to the model
const historyTurns = 3

const systemPrompt = "You are a knowledgeable investment advisor assistant for Indian retail investors. Reply with a single JSON object."

// Product is a product card as the app sends it
type Product = map[string]any

// Completer is the slice of llm.LLMClient the assistant uses
type Completer interface {
	CompleteWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage, maxRetries int) (*openai.ChatCompletionResponse, error)
	ParseJSONResponse(content string, target interface{}) error
}

// Profiles looks up the stored record used to personalise answers
type Profiles interface {
	Load(ctx context.Context, userID string) *user.Record
}

// Turn is one earlier exchange in the product conversation
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Query is a question about zero or more products
type Query struct {
	Question string    `json:"question"`
	Products []Product `json:"products,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	History  []Turn    `json:"conversation_history,omitempty"`
}

// Answer is the reply to a Query
type Answer struct {
	Answer            string   `json:"answer"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Resources         []string `json:"resources"`
}

// Explanation describes one product
type Explanation struct {
	Summary        string   `json:"summary"`
	Benefits       []string `json:"benefits"`
	Considerations []string `json:"considerations"`
	IdealFor       string   `json:"ideal_for"`
}

// Comparison contrasts two or more products
type Comparison struct {
	Overview       string   `json:"overview"`
	KeyDifferences []string `json:"key_differences"`
	Recommendation string   `json:"recommendation"`
	Considerations []string `json:"considerations"`
}

// Assistant implements the product conversation on an LLM
type Assistant struct {
	llm        Completer
	profiles   Profiles
	maxRetries int
	log        zerolog.Logger
}

// NewAssistant creates an assistant. profiles may be nil, in which case
// answers are not personalised.
func NewAssistant(c Completer, profiles Profiles, maxRetries int) *Assistant {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Assistant{
		llm:        c,
		profiles:   profiles,
		maxRetries: maxRetries,
		log:        log.With().Str("component", "investment_assistant").Logger(),
	}
}

// Answer replies to a question. It never fails: a model error yields an
// apology and an unstructured reply is returned as the answer text.
func (a *Assistant) Answer(ctx context.Context, q Query) Answer {
	prompt := answerPrompt(q, a.userContext(ctx, q.UserID))

	text, err := a.generate(ctx, "answer", prompt)
	if err != nil {
		a.log.Error().Err(err).Str("user_id", q.UserID).Msg("Failed to answer investment question")
		return Answer{Answer: AnswerFailedReply, FollowUpQuestions: []string{}, Resources: []string{}}
	}

	var out Answer
	if !a.decode(text, &out, "answer") {
		return Answer{Answer: text, FollowUpQuestions: []string{}, Resources: []string{}}
	}
	out.FollowUpQuestions = nonNil(out.FollowUpQuestions)
	out.Resources = nonNil(out.Resources)
	return out
}

// Explain describes the benefits and drawbacks of one product
func (a *Assistant) Explain(ctx context.Context, product Product, userID string) Explanation {
	prompt := explainPrompt(product, a.userContext(ctx, userID))

	text, err := a.generate(ctx, "explain", prompt)
	if err != nil {
		a.log.Error().Err(err).Str("user_id", userID).Msg("Failed to explain product")
		return Explanation{Summary: ExplainFailedReply, Benefits: []string{}, Considerations: []string{}}
	}

	var out Explanation
	if !a.decode(text, &out, "summary", "benefits") {
		return Explanation{Summary: text, Benefits: []string{}, Considerations: []string{}}
	}
	out.Benefits = nonNil(out.Benefits)
	out.Considerations = nonNil(out.Considerations)
	return out
}

// Compare contrasts products conversationally
func (a *Assistant) Compare(ctx context.Context, products []Product) Comparison {
	text, err := a.generate(ctx, "compare", comparePrompt(products))
	if err != nil {
		a.log.Error().Err(err).Int("products", len(products)).Msg("Failed to compare products")
		return Comparison{Overview: CompareFailedReply, KeyDifferences: []string{}, Considerations: []string{}}
	}

	var out Comparison
	if !a.decode(text, &out, "overview", "key_differences") {
		return Comparison{Overview: text, KeyDifferences: []string{}, Considerations: []string{}}
	}
	out.KeyDifferences = nonNil(out.KeyDifferences)
	out.Considerations = nonNil(out.Considerations)
	return out
}

func (a *Assistant) generate(ctx context.Context, op, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	resp, err := a.llm.CompleteWithRetry(ctx, messages, a.maxRetries)
	if err == nil {
		var text string
		if text, err = llm.TextOf(resp); err == nil {
			return text, nil
		}
	}
	metrics.RecordAgentError("investment_" + op)
	return "", err
}

// decode fills target from text when the JSON object carries every required
// key. Text around the object, fenced or not, is ignored.
func (a *Assistant) decode(text string, target any, required ...string) bool {
	var raw map[string]json.RawMessage
	if err := a.llm.ParseJSONResponse(text, &raw); err != nil {
		inner, ok := braced(text)
		if !ok || a.llm.ParseJSONResponse(inner, &raw) != nil {
			a.log.Warn().Err(err).Msg("Assistant reply is not JSON, returning it as text")
			return false
		}
	}
	for _, k := range required {
		if _, ok := raw[k]; !ok {
			a.log.Warn().Str("missing", k).Msg("Assistant reply lacks a required field")
			return false
		}
	}

	// Fields of the wrong type are dropped rather than failing the reply
	for k, v := range raw {
		one, _ := json.Marshal(map[string]json.RawMessage{k: v})
		_ = json.Unmarshal(one, target)
	}
	return true
}

// braced returns the text from the first '{' to the last '}'
func braced(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// userContext summarises the stored profile. Unscored users contribute only
// the answers they have given so far.
func (a *Assistant) userContext(ctx context.Context, userID string) map[string]any {
	if a.profiles == nil || strings.TrimSpace(userID) == "" {
		return nil
	}
	rec := a.profiles.Load(ctx, userID)
	if rec == nil {
		return nil
	}

	out := map[string]any{}
	if res, ok := rec.Profile.Risk(); ok {
		out["risk_profile"] = string(res.Category)
		out["risk_score"] = res.Score
	}
	answers := map[string]string{}
	for _, k := range user.ParamKeys {
		if v, ok := rec.Profile.RiskParameters.Get(k); ok {
			answers[string(k)] = v
		}
	}
	if len(answers) > 0 {
		out["questionnaire_answers"] = answers
	}
	if types := rec.Preferences.LikedInvestmentTypes; len(types) > 0 {
		out["liked_investment_types"] = types
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

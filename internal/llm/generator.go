package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ajitpratap0/moneymind/internal/metrics"
)

// Replies the generator returns instead of errors
const (
	BlockedReply       = "My response was blocked due to safety settings. Could you please rephrase?"
	EmptyReply         = "Sorry, I received an empty response. Could you try again?"
	ErrorReply         = "Sorry, I encountered an error trying to generate a response."
	ToolSendErrorReply = "Sorry, an error occurred while communicating the tool result back to the AI."
	FinalBlockedReply  = "My final response was blocked due to safety settings. Could you please rephrase?"
	NoFinalTextReply   = "Sorry, I wasn't able to formulate a final text response after using the required tools. Please try again."
	ToolsErrorReply    = "Sorry, I encountered an unexpected error while processing your request with tools."
	ToolCapReply       = "Sorry, I needed too many lookups to answer that. Could you ask a more specific question?"

	unknownToolReply = "Error: The model tried to use an unknown tool ('%s')."
)

// DefaultMaxToolCalls bounds tool executions per GenerateWithTools call
const DefaultMaxToolCalls = 5

// Generator produces user-facing text. It never fails: every failure is
// mapped to one of the fixed replies above.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
	GenerateWithTools(ctx context.Context, prompt string, tools []ToolSpec, impls map[string]ToolFunc) string
}

// ChatCompleter is the slice of LLMClient the generator needs
type ChatCompleter interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools ...openai.Tool) (*openai.ChatCompletionResponse, error)
}

// ToolGenerator implements Generator on a ChatCompleter
type ToolGenerator struct {
	llm          ChatCompleter
	maxToolCalls int
	log          zerolog.Logger
}

var _ Generator = (*ToolGenerator)(nil)

// NewGenerator creates a generator. maxToolCalls <= 0 selects the default.
func NewGenerator(llm ChatCompleter, maxToolCalls int) *ToolGenerator {
	if maxToolCalls <= 0 {
		maxToolCalls = DefaultMaxToolCalls
	}
	return &ToolGenerator{
		llm:          llm,
		maxToolCalls: maxToolCalls,
		log:          log.With().Str("component", "generator").Logger(),
	}
}

// Generate answers a single prompt without tools
func (g *ToolGenerator) Generate(ctx context.Context, prompt string) string {
	resp, err := g.llm.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		g.log.Error().Err(err).Msg("Generation failed")
		return ErrorReply
	}

	text, err := TextOf(resp)
	switch {
	case errors.Is(err, ErrBlocked):
		g.log.Warn().Msg("Generation blocked by safety settings")
		return BlockedReply
	case err != nil:
		g.log.Warn().Err(err).Msg("Generation returned no text")
		return EmptyReply
	}
	return text
}

type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecutingTool
	stateDone
	stateBlocked
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "awaiting_model"
	case stateExecutingTool:
		return "executing_tool"
	case stateDone:
		return "done"
	default:
		return "blocked"
	}
}

// toolLoop holds the conversation for one GenerateWithTools call
type toolLoop struct {
	state    loopState
	messages []openai.ChatCompletionMessage
	pending  []openai.ToolCall
	calls    int
	reply    string
}

// GenerateWithTools answers prompt, letting the model call the given tools.
// The loop alternates between asking the model and executing the tool calls
// it requests until the model answers in text, a failure ends the turn or
// the tool call cap is reached.
func (g *ToolGenerator) GenerateWithTools(ctx context.Context, prompt string, tools []ToolSpec, impls map[string]ToolFunc) string {
	defs := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}

	loop := &toolLoop{
		state:    stateAwaitingModel,
		messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
	}

	for loop.state != stateDone && loop.state != stateBlocked {
		switch loop.state {
		case stateAwaitingModel:
			g.askModel(ctx, loop, defs)
		case stateExecutingTool:
			g.runTools(ctx, loop, impls)
		}
	}

	g.log.Debug().
		Str("state", loop.state.String()).
		Int("tool_calls", loop.calls).
		Msg("Tool loop finished")
	return loop.reply
}

func (g *ToolGenerator) askModel(ctx context.Context, loop *toolLoop, defs []openai.Tool) {
	afterTools := loop.calls > 0

	resp, err := g.llm.Complete(ctx, loop.messages, defs...)
	if err != nil {
		g.log.Error().Err(err).Bool("after_tools", afterTools).Msg("Tool-enabled generation failed")
		loop.finish(stateBlocked, pick(afterTools, ToolSendErrorReply, ToolsErrorReply))
		return
	}
	if len(resp.Choices) == 0 {
		loop.finish(stateBlocked, pick(afterTools, NoFinalTextReply, EmptyReply))
		return
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		g.log.Warn().Bool("after_tools", afterTools).Msg("Generation blocked by safety settings")
		loop.finish(stateBlocked, pick(afterTools, FinalBlockedReply, BlockedReply))
		return
	}

	if len(choice.Message.ToolCalls) > 0 {
		loop.messages = append(loop.messages, choice.Message)
		loop.pending = choice.Message.ToolCalls
		loop.state = stateExecutingTool
		return
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		loop.finish(stateBlocked, pick(afterTools, NoFinalTextReply, EmptyReply))
		return
	}
	loop.finish(stateDone, text)
}

func (g *ToolGenerator) runTools(ctx context.Context, loop *toolLoop, impls map[string]ToolFunc) {
	for _, call := range loop.pending {
		if loop.calls >= g.maxToolCalls {
			g.log.Warn().Int("max_tool_calls", g.maxToolCalls).Msg("Tool call cap reached")
			loop.finish(stateBlocked, ToolCapReply)
			return
		}
		loop.calls++

		name := call.Function.Name
		impl, ok := impls[name]
		if !ok {
			g.log.Error().Str("tool", name).Msg("Model requested an unknown tool")
			metrics.RecordToolCall("unknown", false)
			loop.finish(stateBlocked, fmt.Sprintf(unknownToolReply, name))
			return
		}

		result := g.execute(ctx, name, call.Function.Arguments, impl)
		loop.messages = append(loop.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			Name:       name,
			ToolCallID: call.ID,
		})
	}
	loop.pending = nil
	loop.state = stateAwaitingModel
}

func (g *ToolGenerator) execute(ctx context.Context, name, rawArgs string, impl ToolFunc) string {
	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			metrics.RecordToolCall(name, false)
			return toolError(name, fmt.Errorf("invalid arguments: %w", err))
		}
	}

	g.log.Info().Str("tool", name).Interface("args", args).Msg("Executing tool")
	out, err := impl(ctx, args)
	if err != nil {
		g.log.Error().Err(err).Str("tool", name).Msg("Tool execution failed")
		metrics.RecordToolCall(name, false)
		return toolError(name, err)
	}
	metrics.RecordToolCall(name, true)
	return out
}

func toolError(name string, err error) string {
	b, _ := json.Marshal(map[string]string{
		"error": fmt.Sprintf("Error executing tool %s: %v", name, err),
	})
	return string(b)
}

func (l *toolLoop) finish(state loopState, reply string) {
	l.state = state
	l.reply = reply
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

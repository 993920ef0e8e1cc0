package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/profiling"
	"github.com/ajitpratap0/moneymind/internal/search"
	"github.com/ajitpratap0/moneymind/internal/user"
)

var fixedTime = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

type fakeGenerator struct {
	reply   string
	prompts []string
	tools   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) string {
	f.prompts = append(f.prompts, prompt)
	return f.reply
}

func (f *fakeGenerator) GenerateWithTools(_ context.Context, prompt string, specs []llm.ToolSpec, _ map[string]llm.ToolFunc) string {
	f.prompts = append(f.prompts, prompt)
	for _, s := range specs {
		f.tools = append(f.tools, s.Name)
	}
	return f.reply
}

func noopTool(context.Context, map[string]any) (string, error) { return "[]", nil }

func newsTools() map[string]llm.ToolFunc {
	return map[string]llm.ToolFunc{search.ToolFinancialNews: noopTool}
}

func named(rec *user.Record, name string) *user.Record {
	rec.Profile.Name = &name
	return rec
}

func scored(rec *user.Record, category user.RiskCategory, score int) *user.Record {
	rec.Profile.SetRiskResult(user.RiskResult{Score: score, Category: category, Breakdown: map[string]int{}})
	return rec
}

func TestQnAAgent_Handle(t *testing.T) {
	gen := &fakeGenerator{reply: "A SIP is a systematic investment plan."}
	a := NewQnAAgent(gen, nil)
	a.now = fixedClock

	rec := named(user.New("u1"), "Asha")
	rec.Preferences.QnATopicsInterest = []string{"Tax", "Loan"}

	reply, err := a.Handle(context.Background(), "How does a SIP in a mutual fund work?", rec)
	require.NoError(t, err)
	assert.Equal(t, gen.reply, reply)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "The user's name is Asha.")
	assert.Contains(t, gen.prompts[0], "The user (Asha) has previously shown interest in: Tax, Loan.")
	assert.Equal(t, []string{search.ToolGoogleSearch, search.ToolYouTubeSearch}, gen.tools)

	assert.Equal(t, []string{"Tax", "Loan", "Mutual fund", "Sip"}, rec.Preferences.QnATopicsInterest)
	require.Len(t, rec.History.QnALog, 1)
	entry := rec.History.QnALog[0]
	assert.Equal(t, "How does a SIP in a mutual fund work?", entry.Question)
	assert.Equal(t, gen.reply, entry.Answer)
	assert.Equal(t, fixedTime, entry.Timestamp)
	assert.NotEmpty(t, entry.ID)
}

func TestQnAAgent_NoContextForNewUser(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	rec := user.New("u1")

	_, err := NewQnAAgent(gen, nil).Handle(context.Background(), "hello world", rec)
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "The user's name is there.")
	assert.NotContains(t, gen.prompts[0], "previously shown interest")
	assert.Equal(t, []string{"Hello world"}, rec.Preferences.QnATopicsInterest)
}

func TestQnAAgent_CancelledContext(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	rec := user.New("u1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := NewQnAAgent(gen, nil).Handle(ctx, "what is tax", rec)
	require.NoError(t, err)
	assert.Equal(t, qnaErrorReply, reply)
	assert.Empty(t, gen.prompts)
	assert.Empty(t, rec.History.QnALog)
}

func TestQnATopics(t *testing.T) {
	tests := []struct {
		question string
		want     []string
	}{
		{"Should I buy gold or an FD?", []string{"Fd", "Gold"}},
		{"income tax on stock market gains", []string{"Stock", "Market", "Tax"}},
		{"explain compounding interest", []string{"Compounding interest"}},
		{"hi", []string{"Hi"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, QnATopics(tt.question))
		})
	}
}

func TestNewsTopic(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"latest news about Reliance Industries?", "Reliance Industries"},
		{"any update on rbi policy!", "rbi policy"},
		{"what is happening with Infosys and TCS today", "Infosys TCS"},
		{"gold prices", "gold"},
		{"how are things", "how are things"},
		{"tell me what is happening right now please", generalNewsTopic},
		{"??", fallbackNewsTopic},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			assert.Equal(t, tt.want, NewsTopic(tt.request))
		})
	}
}

func TestTitleAndUpper(t *testing.T) {
	assert.True(t, isTitle("Infosys"))
	assert.True(t, isTitle("Tata-Motors"))
	assert.False(t, isTitle("iPhone"))
	assert.False(t, isTitle("TCS"))
	assert.False(t, isTitle("123"))
	assert.True(t, isUpper("TCS"))
	assert.True(t, isUpper("HDFC2"))
	assert.False(t, isUpper("Tcs"))
	assert.False(t, isUpper("2024"))
}

func TestNewsAgent_Handle(t *testing.T) {
	gen := &fakeGenerator{reply: "Okay, here's the latest I found on Infosys:"}
	a := NewNewsAgent(gen, newsTools())
	a.now = fixedClock

	rec := user.New("u1")
	rec.Preferences.NewsInteractionTopics = []string{"gold"}
	rec.Preferences.LikedCompanies = []string{"TCS"}

	reply, err := a.Handle(context.Background(), "news about Infosys", rec)
	require.NoError(t, err)
	assert.Equal(t, gen.reply, reply)

	assert.Contains(t, gen.prompts[0], "User previously showed interest in news about: gold. They follow companies like: TCS.")
	assert.Equal(t, []string{search.ToolFinancialNews}, gen.tools)
	assert.Equal(t, []string{"gold", "Infosys"}, rec.Preferences.NewsInteractionTopics)

	require.Len(t, rec.History.NewsLog, 1)
	entry := rec.History.NewsLog[0]
	assert.Equal(t, "news about Infosys", entry.Request)
	assert.Equal(t, gen.reply, entry.ResponseReceived)
	assert.Equal(t, "Infosys", entry.TopicIdentified)
	assert.Equal(t, fixedTime, entry.Timestamp)
	assert.False(t, entry.UnexpectedFailure)
}

func TestNewsAgent_FlagsRefusal(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry, I cannot access real-time data."}
	rec := user.New("u1")

	reply, err := NewNewsAgent(gen, newsTools()).Handle(context.Background(), "Sensex today", rec)
	require.NoError(t, err)
	assert.Equal(t, gen.reply, reply)
	require.Len(t, rec.History.NewsLog, 1)
	assert.True(t, rec.History.NewsLog[0].UnexpectedFailure)
	assert.Equal(t, "Sensex", rec.History.NewsLog[0].TopicIdentified)
}

func TestNewsAgent_InternalError(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	rec := user.New("u1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := NewNewsAgent(gen, newsTools()).Handle(ctx, "news about gold", rec)
	require.NoError(t, err)
	assert.Equal(t, newsErrorReply, reply)
	assert.Empty(t, gen.prompts)
	assert.Empty(t, rec.Preferences.NewsInteractionTopics)

	require.Len(t, rec.History.NewsLog, 1)
	entry := rec.History.NewsLog[0]
	assert.Equal(t, "Error", entry.TopicIdentified)
	assert.True(t, entry.UnexpectedFailure)
	assert.Contains(t, entry.ResponseReceived, "Agent Error: ")
}

func TestNewsAgent_MissingTool(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	rec := user.New("u1")

	reply, err := NewNewsAgent(gen, nil).Handle(context.Background(), "news about gold", rec)
	require.NoError(t, err)
	assert.Equal(t, newsConfigReply, reply)
	assert.Empty(t, rec.History.NewsLog)
}

const validPortfolio = "```json\n" + `{"portfolio_allocation": {
  "low_risk_investments": {"percentage": 40, "breakdown": {"fixed_deposits": 20, "ppf": 20}},
  "medium_risk_investments": {"percentage": 40, "breakdown": {"index_funds": 40}},
  "high_risk_investments": {"percentage": 20, "breakdown": {"small_cap_funds": 15, "crypto": 5}}
}}` + "\n```"

func TestPortfolioAgent_NeedsProfile(t *testing.T) {
	gen := &fakeGenerator{reply: validPortfolio}
	rec := user.New("u1")

	reply, err := NewPortfolioAgent(gen).Handle(context.Background(), "suggest investment", rec)
	require.NoError(t, err)
	assert.Equal(t, NeedsProfileReply, reply)
	assert.Empty(t, gen.prompts)
	assert.Empty(t, rec.History.PortfolioSuggestions)
}

func TestPortfolioAgent_Initial(t *testing.T) {
	gen := &fakeGenerator{reply: validPortfolio}
	a := NewPortfolioAgent(gen)
	a.now = fixedClock
	rec := scored(named(user.New("u1"), "Ravi"), user.ModerateRiskTolerance, 55)

	reply, err := a.Handle(context.Background(), "suggest investment options", rec)
	require.NoError(t, err)

	assert.Contains(t, reply, "Okay Ravi, based on your 'Moderate Risk Tolerance' profile (Score: 55)")
	assert.Contains(t, reply, "**Low Risk Investments (40%)**")
	assert.Contains(t, reply, "- Small Cap Funds: 15%")
	assert.Contains(t, reply, "**Disclaimer:**")
	assert.Contains(t, gen.prompts[0], "Generate an initial portfolio")

	require.Len(t, rec.History.PortfolioSuggestions, 1)
	s := rec.History.PortfolioSuggestions[0]
	assert.Equal(t, user.ModerateRiskTolerance, s.RiskCategoryAtTime)
	assert.Equal(t, 55, s.RiskScoreAtTime)
	assert.Equal(t, fixedTime, s.Timestamp)
	require.NotNil(t, s.Portfolio.High)
	assert.Equal(t, 20.0, s.Portfolio.High.Percentage)
}

func TestPortfolioAgent_Adjustment(t *testing.T) {
	gen := &fakeGenerator{reply: validPortfolio}
	a := NewPortfolioAgent(gen)
	rec := scored(user.New("u1"), user.HighRiskTolerance, 80)

	_, err := a.Handle(context.Background(), "suggest investment options", rec)
	require.NoError(t, err)

	reply, err := a.Handle(context.Background(), "remove crypto please", rec)
	require.NoError(t, err)
	assert.Contains(t, reply, "Okay there, based on your 'High Risk Tolerance' profile and your request ('remove crypto please')")
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "adjust the previous suggestion")
	assert.Contains(t, gen.prompts[1], "(20% Low, 40% Medium, 40% High)")
	assert.Len(t, rec.History.PortfolioSuggestions, 2)
}

func TestPortfolioAgent_AdjustmentWithoutHistoryIsInitial(t *testing.T) {
	gen := &fakeGenerator{reply: validPortfolio}
	rec := scored(user.New("u1"), user.LowRiskTolerance, 20)

	reply, err := NewPortfolioAgent(gen).Handle(context.Background(), "add more gold", rec)
	require.NoError(t, err)
	assert.Contains(t, reply, "(Score: 20)")
	assert.Contains(t, gen.prompts[0], "Generate an initial portfolio")
}

func TestPortfolioAgent_ParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "no json", reply: "I cannot help with that.", want: "Sorry, I encountered an issue generating the portfolio suggestion (Response doesn't contain the expected JSON structure.). Please try again."},
		{name: "bad json", reply: "```json\n{\"portfolio_allocation\": {,}}\n```", want: portfolioFormatReply},
		{name: "missing key", reply: `{"allocation": {}}`, want: "Sorry, I encountered an issue generating the portfolio suggestion (Missing 'portfolio_allocation' key in generated JSON.). Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := scored(user.New("u1"), user.ModerateRiskTolerance, 50)
			reply, err := NewPortfolioAgent(&fakeGenerator{reply: tt.reply}).Handle(context.Background(), "suggest", rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Empty(t, rec.History.PortfolioSuggestions)
		})
	}
}

func TestPortfolioAgent_CancelledContext(t *testing.T) {
	rec := scored(user.New("u1"), user.ModerateRiskTolerance, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := NewPortfolioAgent(&fakeGenerator{reply: validPortfolio}).Handle(ctx, "suggest", rec)
	require.NoError(t, err)
	assert.Equal(t, portfolioUnexpectedReply, reply)
}

func TestProfileAgent_Handle(t *testing.T) {
	a := NewProfileAgent(profiling.NewMachine())
	rec := user.New("u1")
	rec.ConversationState.AwaitQuestion(user.IncomeSource)

	reply, err := a.Handle(context.Background(), "Salary", rec)
	require.NoError(t, err)
	assert.Equal(t, user.AgentProfile, a.Name())

	v, _ := rec.Profile.RiskParameters.Get(user.IncomeSource)
	assert.Equal(t, "Salary", v)
	assert.Contains(t, reply, "How stable is your income?")
}

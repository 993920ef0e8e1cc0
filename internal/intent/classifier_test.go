package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) CompleteWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	f.calls++
	f.prompt = userPrompt
	return f.reply, f.err
}

func TestClassify_KeywordTier(t *testing.T) {
	tests := []struct {
		text string
		want Intent
		rule string
	}{
		{"What is a mutual fund", QnA, "question"},
		{"Can you explain SIPs", QnA, "question"},
		{"gold?", QnA, "question"},
		{"Tell me about PPF", QnA, "question"},
		{"latest news on Infosys", NewsRequest, "news"},
		{"any update on RBI policy", NewsRequest, "news"},
		{"Reliance stock price", NewsRequest, "news"},
		{"suggest investment options", PortfolioRequest, "portfolio"},
		{"adjust portfolio to drop crypto", PortfolioRequest, "portfolio"},
		{"show my profile", ProfileUpdate, "profile"},
		{"assess my risk tolerance", ProfileUpdate, "profile"},
		{"I want to update my income", ProfileUpdate, "profile"},
	}

	llm := &fakeCompleter{reply: "Q&A"}
	c := NewClassifier(llm)

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := c.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.want, d.Intent)
			assert.Equal(t, tt.rule, d.Rule)
			assert.False(t, d.ViaModel)
		})
	}
	assert.Zero(t, llm.calls)
}

func TestClassify_RulePrecedence(t *testing.T) {
	c := NewClassifier(nil)

	// question beats news
	assert.Equal(t, QnA, c.Classify(context.Background(), "what is the market doing").Intent)
	// news beats portfolio
	assert.Equal(t, NewsRequest, c.Classify(context.Background(), "market news for my portfolio").Intent)
	// portfolio beats profile
	assert.Equal(t, PortfolioRequest, c.Classify(context.Background(), "portfolio for my risk tolerance").Intent)
}

func TestMatchRules_CustomOrder(t *testing.T) {
	rules := DefaultRules()
	rules[0], rules[1] = rules[1], rules[0]

	r, ok := MatchRules(rules, "what is the market news")
	require.True(t, ok)
	assert.Equal(t, NewsRequest, r.Intent)

	_, ok = MatchRules(rules, "hello there")
	assert.False(t, ok)
}

func TestClassify_ModelTier(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  Intent
	}{
		{name: "exact", reply: "Portfolio Request", want: PortfolioRequest},
		{name: "exact with whitespace", reply: "  News Request \n", want: NewsRequest},
		{name: "lenient", reply: "The category is Profile Update.", want: ProfileUpdate},
		{name: "lenient lowercase", reply: "q&a", want: QnA},
		{name: "unclear", reply: "Unclear/General", want: UnclearGeneral},
		{name: "garbage", reply: "banana", want: UnclearGeneral},
		{name: "empty", reply: "", want: UnclearGeneral},
		{name: "error", err: errors.New("boom"), want: UnclearGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{reply: tt.reply, err: tt.err}
			d := NewClassifier(llm).Classify(context.Background(), "hmm okay then")
			assert.Equal(t, tt.want, d.Intent)
			assert.True(t, d.ViaModel)
			assert.Equal(t, 1, llm.calls)
		})
	}
}

func TestClassify_NilModel(t *testing.T) {
	d := NewClassifier(nil).Classify(context.Background(), "hello")
	assert.Equal(t, UnclearGeneral, d.Intent)
	assert.True(t, d.ViaModel)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("hi there")
	assert.Contains(t, p, "- Q&A\n- News Request\n- Profile Update\n- Portfolio Request\n- Unclear/General\n")
	assert.Contains(t, p, `User Input: "hi there"`)
	assert.Contains(t, p, "Respond with ONLY the category name")
}

func TestIntent_Names(t *testing.T) {
	for _, i := range All() {
		back, ok := ParseIntent(i.String())
		assert.True(t, ok)
		assert.Equal(t, i, back)
		assert.NotEmpty(t, i.Slug())
	}
	_, ok := ParseIntent("q&a")
	assert.False(t, ok)
}

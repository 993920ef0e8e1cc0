package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ajitpratap0/moneymind/internal/llm"
)

// Tool names exposed to the model
const (
	ToolGoogleSearch  = "google_search"
	ToolYouTubeSearch = "youtube_search"
	ToolFinancialNews = "get_financial_news"
)

var errMissingQuery = errors.New("missing required argument 'query'")

// GoogleSearchSpec declares the web search tool
var GoogleSearchSpec = llm.ToolSpec{
	Name:        ToolGoogleSearch,
	Description: "Search Google for relevant, current, or specific information, especially for topics related to Indian finance, markets, or regulations.",
	Parameters:  llm.StringParams("query", "The specific search query for Google. Be precise."),
}

// YouTubeSearchSpec declares the video search tool
var YouTubeSearchSpec = llm.ToolSpec{
	Name:        ToolYouTubeSearch,
	Description: "Search YouTube for explanatory videos on financial concepts, investment strategies, or tutorials relevant to Indian users.",
	Parameters:  llm.StringParams("query", "The search query for YouTube videos (e.g., 'explain mutual funds india', 'stock market basics india')."),
}

// FinancialNewsSpec declares the news tool
var FinancialNewsSpec = llm.ToolSpec{
	Name: ToolFinancialNews,
	Description: "Fetches recent financial/business news OR key market indicators. " +
		"Use for queries about specific Indian companies (e.g., Reliance, Infosys), " +
		"stock tickers (e.g., RELIANCE.NS), financial topics (e.g., 'RBI policy', 'Indian IPO market'), " +
		"commodities (e.g., 'gold price India'), or general market status (e.g., 'Indian stock market performance', 'Nifty 50 status'). " +
		"The tool specifically targets the Indian context.",
	Parameters: llm.StringParams("query",
		"The specific topic, company name, ticker symbol, commodity, or market status phrase to search for news or market data. "+
			"Examples: 'latest RBI policy news', 'Infosys quarterly results', 'gold price trend India', 'Sensex current status', 'Indian EV market news'."),
}

// Tools returns every tool implementation backed by s, keyed by tool name
func Tools(s Searcher) map[string]llm.ToolFunc {
	return map[string]llm.ToolFunc{
		ToolGoogleSearch:  queryTool(s.Search),
		ToolYouTubeSearch: queryTool(s.YouTube),
		ToolFinancialNews: queryTool(s.News),
	}
}

func queryTool(fn func(context.Context, string) ([]Result, error)) llm.ToolFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query := strings.TrimSpace(llm.StringArg(args, "query"))
		if query == "" {
			return "", errMissingQuery
		}
		results, err := fn(ctx, query)
		if err != nil {
			return "", err
		}
		if results == nil {
			results = []Result{}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

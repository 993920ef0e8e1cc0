package user

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentName identifies the agent that last handled a turn
type AgentName string

const (
	AgentProfile   AgentName = "UserProfileAgent"
	AgentQnA       AgentName = "QnAAgent"
	AgentNews      AgentName = "NewsAgent"
	AgentPortfolio AgentName = "PortfolioAgent"
)

// RiskCategory is the bucket derived from a risk score
type RiskCategory string

const (
	LowRiskTolerance      RiskCategory = "Low Risk Tolerance"
	ModerateRiskTolerance RiskCategory = "Moderate Risk Tolerance"
	HighRiskTolerance     RiskCategory = "High Risk Tolerance"
)

// RiskCategories lists the known categories from most to least conservative
var RiskCategories = []RiskCategory{LowRiskTolerance, ModerateRiskTolerance, HighRiskTolerance}

// MaxNewsTopics caps preferences.news_interaction_topics
const MaxNewsTopics = 20

// Record is the whole per-user document persisted between turns
type Record struct {
	UserID            string            `json:"user_id"`
	Profile           Profile           `json:"profile"`
	Preferences       Preferences       `json:"preferences"`
	History           History           `json:"history"`
	ConversationState ConversationState `json:"conversation_state"`
}

// Preferences holds interests learned from past turns, most recent last
type Preferences struct {
	LikedCompanies        []string `json:"liked_companies"`
	LikedInvestmentTypes  []string `json:"liked_investment_types"`
	NewsInteractionTopics []string `json:"news_interaction_topics"`
	QnATopicsInterest     []string `json:"qna_topics_interest"`
}

// History holds append-only logs of agent interactions
type History struct {
	QnALog               []QnAEntry            `json:"qna_log"`
	NewsLog              []NewsEntry           `json:"news_log"`
	PortfolioSuggestions []PortfolioSuggestion `json:"portfolio_suggestions"`
}

// QnAEntry records one answered question
type QnAEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// NewsEntry records one news request
type NewsEntry struct {
	ID                string    `json:"id"`
	Request           string    `json:"request"`
	ResponseReceived  string    `json:"response_received"`
	TopicIdentified   string    `json:"topic_identified_for_log"`
	Timestamp         time.Time `json:"timestamp"`
	UnexpectedFailure bool      `json:"unexpected_failure"`
}

// PortfolioSuggestion records one generated allocation
type PortfolioSuggestion struct {
	ID                 string       `json:"id"`
	Timestamp          time.Time    `json:"timestamp"`
	Request            string       `json:"request"`
	RiskCategoryAtTime RiskCategory `json:"risk_category_at_time"`
	RiskScoreAtTime    int          `json:"risk_score_at_time"`
	Portfolio          Allocation   `json:"portfolio"`
}

// New returns the default record created on first contact
func New(userID string) *Record {
	return &Record{
		UserID: userID,
		Profile: Profile{
			RiskParameters: RiskParameters{},
		},
		Preferences: Preferences{
			LikedCompanies:        []string{},
			LikedInvestmentTypes:  []string{},
			NewsInteractionTopics: []string{},
			QnATopicsInterest:     []string{},
		},
		History: History{
			QnALog:               []QnAEntry{},
			NewsLog:              []NewsEntry{},
			PortfolioSuggestions: []PortfolioSuggestion{},
		},
		ConversationState: ConversationState{
			Context: map[string]any{},
		},
	}
}

// Clone returns a deep copy of the record
func (r *Record) Clone() (*Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &out, nil
}

// Normalize fills nil collections so a record decoded from an older or
// partial document behaves like one created by New.
func (r *Record) Normalize() {
	if r.Profile.RiskParameters == nil {
		r.Profile.RiskParameters = RiskParameters{}
	}
	if r.Preferences.LikedCompanies == nil {
		r.Preferences.LikedCompanies = []string{}
	}
	if r.Preferences.LikedInvestmentTypes == nil {
		r.Preferences.LikedInvestmentTypes = []string{}
	}
	if r.Preferences.NewsInteractionTopics == nil {
		r.Preferences.NewsInteractionTopics = []string{}
	}
	if r.Preferences.QnATopicsInterest == nil {
		r.Preferences.QnATopicsInterest = []string{}
	}
	if r.History.QnALog == nil {
		r.History.QnALog = []QnAEntry{}
	}
	if r.History.NewsLog == nil {
		r.History.NewsLog = []NewsEntry{}
	}
	if r.History.PortfolioSuggestions == nil {
		r.History.PortfolioSuggestions = []PortfolioSuggestion{}
	}
	if r.ConversationState.Context == nil {
		r.ConversationState.Context = map[string]any{}
	}
}

// DisplayName returns the profile name or fallback when unset
func (r *Record) DisplayName(fallback string) string {
	if r.Profile.Name != nil && *r.Profile.Name != "" {
		return *r.Profile.Name
	}
	return fallback
}

// SetParameter stores a canonical answer. Answering has_loans with "No"
// forces loan_payment_percentage to "N/A".
func (r *Record) SetParameter(k ParamKey, answer string) {
	if r.Profile.RiskParameters == nil {
		r.Profile.RiskParameters = RiskParameters{}
	}
	r.Profile.RiskParameters[k] = answer
	if k == HasLoans && answer == AnswerNo {
		r.Profile.RiskParameters[LoanPaymentPercentage] = LoanPaymentNotApplicable
	}
}

// AddNewsTopic appends a topic if new and keeps the most recent MaxNewsTopics
func (r *Record) AddNewsTopic(topic string) {
	if topic == "" || contains(r.Preferences.NewsInteractionTopics, topic) {
		return
	}
	topics := append(r.Preferences.NewsInteractionTopics, topic)
	if len(topics) > MaxNewsTopics {
		topics = topics[len(topics)-MaxNewsTopics:]
	}
	r.Preferences.NewsInteractionTopics = topics
}

// AddQnATopic appends a topic if new
func (r *Record) AddQnATopic(topic string) {
	if topic == "" || contains(r.Preferences.QnATopicsInterest, topic) {
		return
	}
	r.Preferences.QnATopicsInterest = append(r.Preferences.QnATopicsInterest, topic)
}

// AppendQnA logs an answered question
func (r *Record) AppendQnA(question, answer string, at time.Time) {
	r.History.QnALog = append(r.History.QnALog, QnAEntry{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		Timestamp: at,
	})
}

// AppendNews logs a news request
func (r *Record) AppendNews(entry NewsEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.History.NewsLog = append(r.History.NewsLog, entry)
}

// AppendPortfolio logs a generated allocation
func (r *Record) AppendPortfolio(s PortfolioSuggestion) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.History.PortfolioSuggestions = append(r.History.PortfolioSuggestions, s)
}

// LastPortfolio returns the most recent suggestion, if any
func (r *Record) LastPortfolio() (PortfolioSuggestion, bool) {
	n := len(r.History.PortfolioSuggestions)
	if n == 0 {
		return PortfolioSuggestion{}, false
	}
	return r.History.PortfolioSuggestions[n-1], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

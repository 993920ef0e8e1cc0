package user

import "encoding/json"

// ConversationState carries routing state between turns. A pending question
// only exists while the profile agent owns the conversation.
type ConversationState struct {
	Context map[string]any

	lastAgent       *AgentName
	pendingQuestion *string
}

type conversationStateJSON struct {
	LastAgent       *AgentName     `json:"last_agent"`
	PendingQuestion *string        `json:"pending_question"`
	Context         map[string]any `json:"context"`
}

// LastAgent returns the agent that handled the previous turn
func (s *ConversationState) LastAgent() (AgentName, bool) {
	if s.lastAgent == nil {
		return "", false
	}
	return *s.lastAgent, true
}

// PendingQuestion returns the raw pending key. It may name an unknown key if
// the stored document was damaged; callers check ParamKey.Valid.
func (s *ConversationState) PendingQuestion() (ParamKey, bool) {
	if s.pendingQuestion == nil {
		return "", false
	}
	return ParamKey(*s.pendingQuestion), true
}

// AwaitingProfileAnswer reports whether the next turn belongs to the profiling flow
func (s *ConversationState) AwaitingProfileAnswer() bool {
	agent, ok := s.LastAgent()
	_, pending := s.PendingQuestion()
	return ok && pending && agent == AgentProfile
}

// AwaitQuestion hands the conversation to the profile agent with k pending
func (s *ConversationState) AwaitQuestion(k ParamKey) {
	agent := AgentProfile
	key := string(k)
	s.lastAgent = &agent
	s.pendingQuestion = &key
}

// HoldProfile keeps the profile agent as owner without touching the pending key
func (s *ConversationState) HoldProfile() {
	agent := AgentProfile
	s.lastAgent = &agent
}

// ClearPending drops the pending question
func (s *ConversationState) ClearPending() {
	s.pendingQuestion = nil
}

// SetLastAgent records the handling agent. Handing off to any agent other than
// the profile agent drops the pending question.
func (s *ConversationState) SetLastAgent(a AgentName) {
	s.lastAgent = &a
	if a != AgentProfile {
		s.pendingQuestion = nil
	}
}

// Reset clears agent, pending question and context
func (s *ConversationState) Reset() {
	s.lastAgent = nil
	s.pendingQuestion = nil
	s.Context = map[string]any{}
}

// MarshalJSON writes the persisted state shape
func (s ConversationState) MarshalJSON() ([]byte, error) {
	ctx := s.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	return json.Marshal(conversationStateJSON{
		LastAgent:       s.lastAgent,
		PendingQuestion: s.pendingQuestion,
		Context:         ctx,
	})
}

// UnmarshalJSON reads the persisted state. Unknown pending keys are kept so the
// profiling flow can notice and repair them.
func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var in conversationStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.lastAgent = in.LastAgent
	s.pendingQuestion = in.PendingQuestion
	s.Context = in.Context
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	return nil
}

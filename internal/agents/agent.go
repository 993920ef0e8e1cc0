// Package agents holds the specialised handlers the router dispatches to.
// Agents mutate the record they are given; persisting it is the caller's job.
package agents

import (
	"context"
	"time"

	"github.com/ajitpratap0/moneymind/internal/profiling"
	"github.com/ajitpratap0/moneymind/internal/user"
)

// Agent handles one turn for one intent
type Agent interface {
	Name() user.AgentName
	Handle(ctx context.Context, input string, rec *user.Record) (string, error)
}

// Clock returns the current time; tests substitute a fixed one
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// ProfileAgent feeds the user's answer to the questionnaire
type ProfileAgent struct {
	machine *profiling.Machine
}

// NewProfileAgent wraps a profiling machine
func NewProfileAgent(m *profiling.Machine) *ProfileAgent {
	return &ProfileAgent{machine: m}
}

func (a *ProfileAgent) Name() user.AgentName { return user.AgentProfile }

// Handle advances the questionnaire with input
func (a *ProfileAgent) Handle(ctx context.Context, input string, rec *user.Record) (string, error) {
	return a.machine.Advance(ctx, &input, rec), nil
}

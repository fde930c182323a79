// Package intelligence runs the consolidation agent that turns a
// conversational turn into a bounded sequence of memory mutations.
package intelligence

import (
	"context"
	"errors"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

// ErrNoLLM is returned when an LLM-backed component is built without a provider.
var ErrNoLLM = errors.New("llm provider is required")

// Store is the subset of the memory client the agent mutates through.
// *core.Client satisfies it.
type Store interface {
	Search(ctx context.Context, query string, opts ...core.SearchOption) ([]*core.SearchHit, error)
	Add(ctx context.Context, content string, category core.Category, opts ...core.AddOption) (*core.MemoryRecord, error)
	Update(ctx context.Context, memoryID int64, content string, edgeType core.EdgeType, category core.Category, opts ...core.UpdateOption) (*core.MemoryRecord, error)
	Delete(ctx context.Context, ids []int64, opts ...core.DeleteOption) (*core.DeleteResult, error)
}

// Turn is one conversational exchange to consolidate.
type Turn struct {
	UserID  string       `json:"user_id"`
	Content string       `json:"content"`
	Profile core.Profile `json:"profile"`
}

// Action is the kind of mutation an Intent requests.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Intent is a single mutation proposed by a Policy.
type Intent struct {
	Action Action `json:"action"`

	// MemoryID is the parent for ActionUpdate.
	MemoryID int64 `json:"memory_id,omitempty"`

	// IDs are the targets of ActionDelete.
	IDs []int64 `json:"ids,omitempty"`

	// Content is the fact text for ActionAdd and ActionUpdate.
	Content string `json:"content,omitempty"`

	Category core.Category `json:"category,omitempty"`

	EdgeType core.EdgeType `json:"edge_type,omitempty"`
}

// Decision is a Policy's answer for one Deciding state.
type Decision struct {
	// Intents are dispatched in order, one per step.
	Intents []Intent

	// Done ends the run once Intents have been dispatched.
	Done bool

	// Summary is a short description of the actions taken, if the policy has one.
	Summary string

	// Usage is the token cost of producing this decision.
	Usage llm.Usage
}

// DecisionInput is everything a Policy sees when deciding.
type DecisionInput struct {
	Turn Turn

	// Facts are atomic statements extracted from the turn, when an extractor ran.
	Facts []string

	// Candidates are the most similar active memories, best first.
	Candidates []*core.SearchHit

	// Outcomes are the results of earlier steps in this run.
	Outcomes []Outcome

	// StepsLeft is how many steps remain before the cap.
	StepsLeft int
}

// Policy decides which mutations a turn warrants.
type Policy interface {
	Decide(ctx context.Context, in DecisionInput) (*Decision, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, in DecisionInput) (*Decision, error)

// Decide calls f.
func (f PolicyFunc) Decide(ctx context.Context, in DecisionInput) (*Decision, error) {
	return f(ctx, in)
}

// Outcome records one dispatched intent.
type Outcome struct {
	Step   int                `json:"step"`
	Intent Intent             `json:"intent"`
	Record *core.MemoryRecord `json:"record,omitempty"`

	// DeletedIDs are the ids a delete actually flipped.
	DeletedIDs []int64 `json:"deleted_ids,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the mutation did not take effect.
// A delete that matched nothing counts as failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// State is a position in the consolidation state machine.
type State string

const (
	StateIdle       State = "idle"
	StateRetrieving State = "retrieving"
	StateDeciding   State = "deciding"
	StateMutating   State = "mutating"

	// TerminatedSummary ends a run normally.
	TerminatedSummary State = "terminated_summary"

	// TerminatedBudgetExceeded ends a run whose token usage passed the budget.
	TerminatedBudgetExceeded State = "terminated_budget_exceeded"

	// TerminatedAborted ends a run on a fatal store error.
	TerminatedAborted State = "terminated_aborted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	switch s {
	case TerminatedSummary, TerminatedBudgetExceeded, TerminatedAborted:
		return true
	}
	return false
}

// Result is the outcome of one consolidation run.
type Result struct {
	RunID    string    `json:"run_id"`
	State    State     `json:"state"`
	Summary  string    `json:"summary"`
	Outcomes []Outcome `json:"outcomes"`
	Notes    []string  `json:"notes,omitempty"`
	Steps    int       `json:"steps"`
	Usage    llm.Usage `json:"usage"`
}

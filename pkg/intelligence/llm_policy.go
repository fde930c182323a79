package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

// LLMPolicy asks a language model which mutations a turn warrants.
//
// Candidates are shown to the model under temporary ids "0".."n-1" and
// mapped back to real ids when parsing. Actions that reference an id the
// model was not shown are dropped.
type LLMPolicy struct {
	llm llm.Provider

	customPrompt string

	now func() time.Time
}

// NewLLMPolicy creates a policy backed by provider.
func NewLLMPolicy(provider llm.Provider) *LLMPolicy {
	return &LLMPolicy{
		llm: provider,
		now: time.Now,
	}
}

// NewLLMPolicyWithPrompt creates a policy whose instructions are replaced by
// customPrompt. Candidates, facts and the turn are still appended.
func NewLLMPolicyWithPrompt(provider llm.Provider, customPrompt string) *LLMPolicy {
	p := NewLLMPolicy(provider)
	p.customPrompt = customPrompt
	return p
}

type candidateView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}

type memoryAction struct {
	ID       string   `json:"id"`
	IDs      []string `json:"ids"`
	Text     string   `json:"text"`
	Memory   string   `json:"memory"`
	Event    string   `json:"event"`
	Category string   `json:"category"`
	EdgeType string   `json:"edge_type"`
}

type actionsResponse struct {
	Memory  []memoryAction `json:"memory"`
	Summary string         `json:"summary"`
}

// Decide implements Policy. The model answers once per run, so the decision
// is always Done.
func (p *LLMPolicy) Decide(ctx context.Context, in DecisionInput) (*Decision, error) {
	if p.llm == nil {
		return nil, ErrNoLLM
	}

	tempIDs := make(map[string]int64, len(in.Candidates))
	views := make([]candidateView, 0, len(in.Candidates))
	for i, hit := range in.Candidates {
		id := strconv.Itoa(i)
		tempIDs[id] = hit.Record.ID
		views = append(views, candidateView{
			ID:        id,
			Text:      hit.Record.Fact,
			Category:  string(hit.Record.Category),
			CreatedAt: hit.Record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: p.systemPrompt(in.Turn.Profile)},
		{Role: llm.RoleUser, Content: p.userPrompt(in, views)},
	}

	resp, err := p.llm.GenerateWithMessages(ctx, messages, llm.WithTemperature(0), llm.WithJSON())
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM decision: %w", err)
	}

	decision, err := parseDecision(resp.Content, tempIDs)
	if err != nil {
		return &Decision{Usage: resp.Usage}, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	decision.Usage = resp.Usage
	decision.Done = true
	return decision, nil
}

func (p *LLMPolicy) systemPrompt(profile core.Profile) string {
	if p.customPrompt != "" {
		return p.customPrompt
	}

	name := profile.Name
	if name == "" {
		name = "unknown"
	}
	language := profile.Language
	if language == "" {
		language = "English"
	}

	return fmt.Sprintf(`You maintain a user's long-term memory. Decide how new information from a conversation combines with the existing similar memories.

# Actions
- ADD: store a new memory when the information is novel.
- UPDATE: supersede an existing memory. Use edge_type "replace" for newer information that contradicts it, "extend" for richer information that keeps it true.
- DELETE: remove memories that are contradicted and have nothing to replace or extend them.
- NONE: skip information that is already captured or not worth storing.

# Guidelines
1. Each memory is one atomic fact of the form <subject> <verb> <predicate>.
2. When memories conflict, the most recent one (latest created_at) wins. UPDATE that one rather than an older one.
3. Use only ids from Existing Memories for UPDATE and DELETE.
4. Never store passwords, API keys, tokens, card numbers or one-time codes.
5. Keep time references inside the fact they qualify.

# Categories
- fact: user preferences, account details and domain facts
- episode: summaries of past interactions or completed tasks
- semantic: relationships between concepts

# User
username: %s, language: %s
%s

# Output Format (JSON)
{
  "memory": [
    {"event": "ADD", "text": "User likes tea", "category": "fact"},
    {"event": "UPDATE", "id": "0", "text": "User prefers oat milk in coffee", "edge_type": "replace", "category": "fact"},
    {"event": "DELETE", "ids": ["1"]},
    {"event": "NONE", "text": "Hello"}
  ],
  "summary": "added tea preference, replaced coffee milk"
}
The summary describes your actions in 10 words or less, or is "acked" when there is nothing to do.`,
		name, language, localNow(p.now(), profile))
}

func (p *LLMPolicy) userPrompt(in DecisionInput, views []candidateView) string {
	existing, _ := json.Marshal(views)

	var b strings.Builder
	b.WriteString("# Existing Memories\n")
	b.Write(existing)
	b.WriteString("\n\n")
	if len(in.Facts) > 0 {
		facts, _ := json.Marshal(in.Facts)
		b.WriteString("# New Facts\n")
		b.Write(facts)
		b.WriteString("\n\n")
	}
	b.WriteString("# Conversation\n")
	b.WriteString(in.Turn.Content)
	if len(in.Outcomes) > 0 {
		b.WriteString("\n\n# Already Done\n")
		for _, o := range in.Outcomes {
			status := "ok"
			if o.Failed() {
				status = "failed"
			}
			fmt.Fprintf(&b, "- %s %q: %s\n", o.Intent.Action, o.Intent.Content, status)
		}
	}
	return b.String()
}

func parseDecision(response string, tempIDs map[string]int64) (*Decision, error) {
	var out actionsResponse
	if err := json.Unmarshal([]byte(removeCodeBlocks(response)), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	decision := &Decision{Summary: strings.TrimSpace(out.Summary)}
	for _, a := range out.Memory {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			text = strings.TrimSpace(a.Memory)
		}
		category, err := core.ParseCategory(a.Category)
		if err != nil {
			category = core.CategoryFact
		}

		switch strings.ToUpper(strings.TrimSpace(a.Event)) {
		case "ADD":
			if text == "" {
				continue
			}
			decision.Intents = append(decision.Intents, Intent{
				Action:   ActionAdd,
				Content:  text,
				Category: category,
			})
		case "UPDATE":
			id, ok := tempIDs[a.ID]
			if !ok || text == "" {
				continue
			}
			edge := core.EdgeType(strings.ToLower(a.EdgeType))
			if !edge.Valid() {
				edge = core.EdgeReplace
			}
			decision.Intents = append(decision.Intents, Intent{
				Action:   ActionUpdate,
				MemoryID: id,
				Content:  text,
				Category: category,
				EdgeType: edge,
			})
		case "DELETE":
			refs := a.IDs
			if a.ID != "" {
				refs = append(refs, a.ID)
			}
			var ids []int64
			for _, ref := range refs {
				if id, ok := tempIDs[ref]; ok {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				continue
			}
			decision.Intents = append(decision.Intents, Intent{
				Action: ActionDelete,
				IDs:    ids,
			})
		}
	}
	return decision, nil
}

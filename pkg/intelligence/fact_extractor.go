package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

// FactExtractor splits a conversational turn into atomic facts using an LLM.
type FactExtractor struct {
	llm llm.Provider

	customPrompt string

	now func() time.Time
}

// NewFactExtractor creates a new fact extractor backed by provider.
func NewFactExtractor(provider llm.Provider) *FactExtractor {
	return &FactExtractor{
		llm: provider,
		now: time.Now,
	}
}

// NewFactExtractorWithPrompt creates a fact extractor that uses customPrompt
// as its system prompt.
func NewFactExtractorWithPrompt(provider llm.Provider, customPrompt string) *FactExtractor {
	e := NewFactExtractor(provider)
	e.customPrompt = customPrompt
	return e
}

type extraction struct {
	NoInfo bool     `json:"noInfo"`
	Info   []string `json:"info"`
	Facts  []string `json:"facts"`
}

// Extract returns the facts worth remembering from turn. noInfo is true when
// the model found nothing, in which case facts is empty.
func (e *FactExtractor) Extract(ctx context.Context, turn Turn) ([]string, bool, llm.Usage, error) {
	if e.llm == nil {
		return nil, false, llm.Usage{}, ErrNoLLM
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.systemPrompt(turn.Profile)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Input:\n%s", turn.Content)},
	}

	resp, err := e.llm.GenerateWithMessages(ctx, messages, llm.WithTemperature(0), llm.WithJSON())
	if err != nil {
		return nil, false, llm.Usage{}, fmt.Errorf("failed to extract facts: %w", err)
	}

	facts, noInfo, err := parseExtraction(resp.Content)
	if err != nil {
		return nil, false, resp.Usage, fmt.Errorf("failed to parse facts response: %w", err)
	}
	return facts, noInfo, resp.Usage, nil
}

func (e *FactExtractor) systemPrompt(profile core.Profile) string {
	if e.customPrompt != "" {
		return e.customPrompt
	}

	return fmt.Sprintf(`Extract relevant memories from the conversation that you should remember when speaking with the user later.

Each memory must be an atomic fact of the format <subject> <verb> <predicate>. Examples:
- User likes coffee
- User is interested in LLMs and AI
- User's friends went home for the holidays

Rules:
- Keep time references ("yesterday", "in May") inside the fact they qualify.
- Never extract passwords, API keys, tokens, card numbers or one-time codes.
- Skip greetings, acknowledgements and small talk.
- Preserve the input language.

%s

Return JSON: {"noInfo": false, "info": ["fact1", "fact2"]}
If there is no information worth extracting return {"noInfo": true, "info": []}`, localNow(e.now(), profile))
}

// localNow renders t in the user's timezone, falling back to UTC.
func localNow(t time.Time, profile core.Profile) string {
	loc := time.UTC
	if profile.Timezone != "" {
		if l, err := time.LoadLocation(profile.Timezone); err == nil {
			loc = l
		}
	}
	return fmt.Sprintf("Today is %s at the user's local timezone (%s).",
		t.In(loc).Format("Monday, January 2, 2006 15:04"), loc.String())
}

func parseExtraction(response string) ([]string, bool, error) {
	var out extraction
	if err := json.Unmarshal([]byte(removeCodeBlocks(response)), &out); err != nil {
		return nil, false, fmt.Errorf("invalid JSON response: %w", err)
	}

	raw := out.Info
	if len(raw) == 0 {
		raw = out.Facts
	}

	facts := make([]string, 0, len(raw))
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			facts = append(facts, f)
		}
	}
	if len(facts) == 0 {
		return facts, true, nil
	}
	return facts, false, nil
}

func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

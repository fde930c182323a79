package intelligence_test

import (
	"context"
	"sync"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

// fakeStore is an in-memory Store with failure injection.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*core.MemoryRecord

	searchErr error
	addErr    error

	// failAfter makes every search past the first failAfter report an outage.
	failAfter int

	searches int
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*core.MemoryRecord)}
}

func (s *fakeStore) Search(ctx context.Context, query string, opts ...core.SearchOption) ([]*core.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.failAfter > 0 && s.searches > s.failAfter {
		return nil, core.NewMemoryError("Search", core.ErrStoreUnavailable)
	}
	o := &core.SearchOptions{}
	for _, opt := range opts {
		opt(o)
	}
	var hits []*core.SearchHit
	for _, r := range s.records {
		if r.UserID == o.UserID && !r.Deleted {
			score := 0.1
			if r.Fact == query {
				score = 1
			}
			hits = append(hits, &core.SearchHit{Record: r, Score: score})
		}
	}
	return hits, nil
}

func (s *fakeStore) Add(ctx context.Context, content string, category core.Category, opts ...core.AddOption) (*core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.addErr != nil {
		return nil, s.addErr
	}
	o := &core.AddOptions{}
	for _, opt := range opts {
		opt(o)
	}
	s.nextID++
	r := &core.MemoryRecord{ID: s.nextID, UserID: o.UserID, Fact: content, Category: category, CreatedAt: time.Now()}
	s.records[r.ID] = r
	return r, nil
}

func (s *fakeStore) Update(ctx context.Context, memoryID int64, content string, edgeType core.EdgeType, category core.Category, opts ...core.UpdateOption) (*core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	o := &core.UpdateOptions{}
	for _, opt := range opts {
		opt(o)
	}
	parent, ok := s.records[memoryID]
	if !ok || parent.Deleted || parent.UserID != o.UserID {
		return nil, core.NewMemoryError("Update", core.ErrUpdateFailed)
	}
	parent.Deleted = true
	s.nextID++
	pid := memoryID
	r := &core.MemoryRecord{ID: s.nextID, UserID: o.UserID, Fact: content, Category: category,
		ParentID: &pid, EdgeType: edgeType, CreatedAt: time.Now()}
	s.records[r.ID] = r
	return r, nil
}

func (s *fakeStore) Delete(ctx context.Context, ids []int64, opts ...core.DeleteOption) (*core.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	o := &core.DeleteOptions{}
	for _, opt := range opts {
		opt(o)
	}
	res := &core.DeleteResult{DeletedIDs: []int64{}}
	for _, id := range ids {
		if r, ok := s.records[id]; ok && !r.Deleted && r.UserID == o.UserID {
			r.Deleted = true
			res.DeletedIDs = append(res.DeletedIDs, id)
		}
	}
	if len(res.DeletedIDs) == 0 {
		return res, core.NewMemoryError("Delete", core.ErrNothingDeleted)
	}
	return res, nil
}

func (s *fakeStore) active(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var facts []string
	for _, r := range s.records {
		if r.UserID == userID && !r.Deleted {
			facts = append(facts, r.Fact)
		}
	}
	return facts
}

func (s *fakeStore) counts() (searches, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches, s.writes
}

// fakeLLM replays canned responses and records the prompts it saw.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	usage     llm.Usage
	err       error
	seen      [][]llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.Response, error) {
	return f.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, messages)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return &llm.Response{Content: content, Usage: f.usage}, nil
}

func (f *fakeLLM) Close() error { return nil }

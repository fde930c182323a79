package core

import (
	"context"
	"sync"
)

// AsyncClient wraps Client with channel-returning variants of each operation.
//
// Each call runs on its own goroutine. Calls for different users proceed in
// parallel; same-user calls are not ordered in process, so callers that need
// ordering must wait for one result before issuing the next call.
//
// Example:
//
//	ac := core.NewAsyncClient(client)
//	res := <-ac.AddAsync(ctx, "User likes coffee", core.CategoryFact, core.WithUserID("user_001"))
//	if res.Error != nil { ... }
//	ac.Wait()
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// RecordResult is the result of an asynchronous Add or Update.
type RecordResult struct {
	Record *MemoryRecord
	Error  error
}

// SearchResult is the result of an asynchronous Search or Recall.
type SearchResult struct {
	Hits  []*SearchHit
	Error error
}

// DeleteAsyncResult is the result of an asynchronous Delete.
type DeleteAsyncResult struct {
	Result *DeleteResult
	Error  error
}

// NewAsyncClient wraps client.
func NewAsyncClient(client *Client) *AsyncClient {
	return &AsyncClient{Client: client}
}

// AddAsync runs Add on a goroutine.
func (ac *AsyncClient) AddAsync(ctx context.Context, content string, category Category, opts ...AddOption) <-chan *RecordResult {
	resultChan := make(chan *RecordResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		record, err := ac.Add(ctx, content, category, opts...)
		resultChan <- &RecordResult{Record: record, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// UpdateAsync runs Update on a goroutine.
func (ac *AsyncClient) UpdateAsync(ctx context.Context, memoryID int64, content string, edgeType EdgeType, category Category, opts ...UpdateOption) <-chan *RecordResult {
	resultChan := make(chan *RecordResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		record, err := ac.Update(ctx, memoryID, content, edgeType, category, opts...)
		resultChan <- &RecordResult{Record: record, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// DeleteAsync runs Delete on a goroutine.
func (ac *AsyncClient) DeleteAsync(ctx context.Context, ids []int64, opts ...DeleteOption) <-chan *DeleteAsyncResult {
	resultChan := make(chan *DeleteAsyncResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		result, err := ac.Delete(ctx, ids, opts...)
		resultChan <- &DeleteAsyncResult{Result: result, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// SearchAsync runs Search on a goroutine.
func (ac *AsyncClient) SearchAsync(ctx context.Context, query string, opts ...SearchOption) <-chan *SearchResult {
	resultChan := make(chan *SearchResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		hits, err := ac.Search(ctx, query, opts...)
		resultChan <- &SearchResult{Hits: hits, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// RecallAsync runs Recall on a goroutine.
func (ac *AsyncClient) RecallAsync(ctx context.Context, query string, opts ...SearchOption) <-chan *SearchResult {
	resultChan := make(chan *SearchResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		hits, err := ac.Recall(ctx, query, opts...)
		resultChan <- &SearchResult{Hits: hits, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until every outstanding asynchronous call has finished.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for outstanding calls and then closes the client.
func (ac *AsyncClient) Close() error {
	ac.Wait()
	return ac.Client.Close()
}

package intelligence

import (
	"context"
	"sync"
)

// RunResult is the result of an asynchronous consolidation.
type RunResult struct {
	Result *Result
	Error  error
}

// Runner runs consolidations on goroutines.
//
// Turns for different users proceed in parallel. Turns for the same user
// are not serialized here; each mutation is atomic in the store, and a
// caller that needs turn ordering must wait for one result before
// submitting the next turn.
type Runner struct {
	agent *Agent
	wg    sync.WaitGroup
}

// NewRunner wraps agent.
func NewRunner(agent *Agent) *Runner {
	return &Runner{agent: agent}
}

// RunAsync consolidates turn on a new goroutine. The channel receives
// exactly one value and is then closed.
func (r *Runner) RunAsync(ctx context.Context, turn Turn) <-chan *RunResult {
	resultChan := make(chan *RunResult, 1)
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		result, err := r.agent.Run(ctx, turn)
		resultChan <- &RunResult{Result: result, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until every submitted turn has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

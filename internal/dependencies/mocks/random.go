package mocks

import (
	"sync"

	"github.com/mcoot/wagerlobby/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	mu sync.Mutex

	// Int64nResults is a queue of results to return from Int64n
	Int64nResults []int64
	int64nIndex   int

	// Err, when set, is returned by every call
	Err error
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Int64n returns the next queued result, or 0 if none remaining.
// Queued values are reduced modulo n so they always stay in range.
func (r *MockRandom) Int64n(n int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	if r.int64nIndex >= len(r.Int64nResults) || n <= 0 {
		return 0, nil
	}
	result := r.Int64nResults[r.int64nIndex]
	r.int64nIndex++
	return result % n, nil
}

// QueueInt64n adds values to the Int64n result queue
func (r *MockRandom) QueueInt64n(values ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Int64nResults = append(r.Int64nResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Int64nResults = nil
	r.int64nIndex = 0
	r.Err = nil
}

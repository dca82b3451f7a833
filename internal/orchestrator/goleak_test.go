package orchestrator

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures Parallel and Mixed plans, which fan work out across
// goroutines bounded by MaxConcurrency, never leak one past the end of a
// test. Follows internal/core/goleak_test.go.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}

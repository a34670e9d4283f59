package cache

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutines leak across this package's tests: the
// singleflight-backed Cache and the fsnotify-backed Watcher are this
// repo's only long-lived concurrency, so they get the same leak check
// applied elsewhere in this codebase's own concurrent cache package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}

package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "STOCKROOM_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should return before opening
// connections. The flag is read from STOCKROOM_TEST_MODE on first use.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	RefreshTestMode()
	return *testMode.Load()
}

// RefreshTestMode re-reads STOCKROOM_TEST_MODE.
func RefreshTestMode() {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
}
